package corpus

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	log "github.com/golang/glog"
)

// Vocabulary is a bijection between word strings and ids in [0, Size).
// It is only grown while loading a training corpus and immutable
// afterwards.
type Vocabulary struct {
	word2id map[string]uint32
	id2word []string
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		word2id: make(map[string]uint32),
	}
}

// Id returns the id of word, if present.
func (v *Vocabulary) Id(word string) (uint32, bool) {
	id, ok := v.word2id[word]
	return id, ok
}

// Word returns the word with the given id.
func (v *Vocabulary) Word(id uint32) string {
	return v.id2word[id]
}

func (v *Vocabulary) Size() uint32 {
	return uint32(len(v.id2word))
}

func (v *Vocabulary) add(word string) uint32 {
	if id, ok := v.word2id[word]; ok {
		return id
	}
	id := uint32(len(v.id2word))
	v.word2id[word] = id
	v.id2word = append(v.id2word, word)
	return id
}

// Serialize writes the vocabulary as "word id" lines.
func (v *Vocabulary) Serialize(fn string) (err error) {
	out, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(out)
	for id, word := range v.id2word {
		if _, err := fmt.Fprintf(w, "%s %d\n", word, id); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Corpus is an ordered sequence of documents, each an ordered
// sequence of vocabulary ids. Immutable after load.
type Corpus struct {
	Vocab    *Vocabulary
	Docs     [][]uint32
	NumWords int
}

func (c *Corpus) NumDocs() int {
	return len(c.Docs)
}

// Load reads a topic modeling corpus with one document per line and
// tokens separated by whitespace, growing a fresh vocabulary as it
// goes. Blank lines are skipped.
func Load(fn string) (*Corpus, error) {
	vocab := NewVocabulary()
	c, err := load(fn, func(word string) (uint32, bool) {
		return vocab.add(word), true
	})
	if err != nil {
		return nil, err
	}
	c.Vocab = vocab

	log.Infof("corpus %s: %d docs, %d words, vocabulary size %d",
		fn, c.NumDocs(), c.NumWords, vocab.Size())
	return c, nil
}

// LoadFrozen reads an unseen corpus against a frozen vocabulary.
// Words missing from the vocabulary are silently dropped.
func LoadFrozen(fn string, vocab *Vocabulary) (*Corpus, error) {
	c, err := load(fn, vocab.Id)
	if err != nil {
		return nil, err
	}
	c.Vocab = vocab

	log.Infof("unseen corpus %s: %d docs, %d known words",
		fn, c.NumDocs(), c.NumWords)
	return c, nil
}

func load(fn string, lookup func(string) (uint32, bool)) (*Corpus, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := &Corpus{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}

		var doc []uint32
		for _, word := range strings.Fields(line) {
			if id, ok := lookup(word); ok {
				doc = append(doc, id)
			}
		}
		c.Docs = append(c.Docs, doc)
		c.NumWords += len(doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if c.NumDocs() == 0 {
		return nil, fmt.Errorf("corpus: %s has no documents", fn)
	}
	return c, nil
}
