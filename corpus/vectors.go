package corpus

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/golang/glog"
)

// WordVectors is the fixed word embedding table, one dense vector per
// vocabulary id. Immutable after load.
type WordVectors struct {
	Dim  int
	Vecs [][]float64
}

// LoadWordVectors reads a word-vectors file with one entry per line:
// the word followed by its vector components, separated by
// whitespace. Entries for words outside vocab are ignored. Every
// vocabulary word must end up with a non-zero vector, otherwise the
// load fails.
func LoadWordVectors(fn string, vocab *Vocabulary) (*WordVectors, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wv := &WordVectors{}
	lineNum := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum += 1
		if len(line) == 0 {
			continue
		}

		fields := strings.Fields(line)
		if wv.Dim == 0 {
			// the first entry fixes the dimensionality
			if len(fields) < 2 {
				return nil, fmt.Errorf("vectors: %s line %d: no components", fn, lineNum)
			}
			wv.Dim = len(fields) - 1
			wv.Vecs = make([][]float64, vocab.Size())
		}
		if len(fields) != wv.Dim+1 {
			return nil, fmt.Errorf("vectors: %s line %d: got %d components, want %d",
				fn, lineNum, len(fields)-1, wv.Dim)
		}

		id, ok := vocab.Id(fields[0])
		if !ok {
			continue
		}
		vec := make([]float64, wv.Dim)
		for i, comp := range fields[1:] {
			val, err := strconv.ParseFloat(comp, 64)
			if err != nil {
				return nil, fmt.Errorf("vectors: %s line %d: %w", fn, lineNum, err)
			}
			vec[i] = val
		}
		wv.Vecs[id] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if wv.Dim == 0 {
		return nil, fmt.Errorf("vectors: %s is empty", fn)
	}

	for id := uint32(0); id < vocab.Size(); id += 1 {
		if absNorm(wv.Vecs[id]) == 0.0 {
			return nil, fmt.Errorf("vectors: word %q has no corresponding vector",
				vocab.Word(id))
		}
	}

	log.Infof("word vectors %s: %d dimensions", fn, wv.Dim)
	return wv, nil
}

func absNorm(vec []float64) float64 {
	sum := 0.0
	for _, v := range vec {
		if v < 0 {
			sum -= v
		} else {
			sum += v
		}
	}
	return sum
}
