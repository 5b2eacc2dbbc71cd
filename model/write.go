package model

import (
	"bufio"
	"fmt"
	"os"

	"gonum.org/v1/gonum/floats"

	"github.com/bobonovski/lftm/sstable"
)

// writeTopTopicalWords ranks every topic's words by their mixture
// probability and writes the top ones, one topic per line.
func (s *sampler) writeTopTopicalWords() (err error) {
	out, err := os.Create(s.outPath(".topWords"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	vocabSize := s.data.Vocab.Size()
	w := bufio.NewWriter(out)
	for t := 0; t < s.cfg.NumTopics; t += 1 {
		probs := make([]float64, vocabSize)
		inds := make([]int, vocabSize)
		for word := uint32(0); word < vocabSize; word += 1 {
			probs[word] = s.topicWordProb(t, word)
		}
		floats.Argsort(probs, inds)

		if _, err := fmt.Fprintf(w, "Topic%d:", t); err != nil {
			return err
		}
		for i := 0; i < s.cfg.TopWords && i < int(vocabSize); i += 1 {
			word := inds[len(inds)-1-i]
			if _, err := fmt.Fprintf(w, " %s", s.data.Vocab.Word(uint32(word))); err != nil {
				return err
			}
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

// writeTopicWordPros writes the topic-word mixture distribution
// matrix, one topic per row.
func (s *sampler) writeTopicWordPros() error {
	vocabSize := s.data.Vocab.Size()
	phi := sstable.NewFloat64Matrix(uint32(s.cfg.NumTopics), vocabSize)
	for t := 0; t < s.cfg.NumTopics; t += 1 {
		for word := uint32(0); word < vocabSize; word += 1 {
			phi.Set(uint32(t), word, s.topicWordProb(t, word))
		}
	}
	return phi.Serialize(s.outPath(".phi"))
}

// writeTopicAssignments dumps the raw subtopic assignments, one
// document per line.
func (s *sampler) writeTopicAssignments() error {
	return writeAssignments(s.outPath(".topicAssignments"), s.assignments)
}

// writeTopicVectors writes the estimated topic vectors, one topic
// per row.
func (s *sampler) writeTopicVectors() error {
	vecs := sstable.NewFloat64Matrix(uint32(s.cfg.NumTopics), uint32(s.tv.dim))
	for t := 0; t < s.cfg.NumTopics; t += 1 {
		copy(vecs.Row(uint32(t)), s.tv.vecs[t])
	}
	return vecs.Serialize(s.outPath(".topicVectors"))
}

// writeDictionary writes the vocabulary as "word id" lines.
func (s *sampler) writeDictionary() error {
	return s.data.Vocab.Serialize(s.outPath(".vocabulary"))
}

// writeIDCorpus writes the id-based corpus, one document per line.
func (s *sampler) writeIDCorpus() (err error) {
	out, err := os.Create(s.outPath(".IDcorpus"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(out)
	for _, doc := range s.data.Docs {
		for i, word := range doc {
			if i > 0 {
				if _, err := w.WriteString(" "); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%d", word); err != nil {
				return err
			}
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

// writeTheta normalizes and writes a document-topic weight matrix,
// one document per row, each row summing to one.
func (s *sampler) writeTheta(weights func(docId int, dst []float64)) error {
	theta := sstable.NewFloat64Matrix(uint32(s.data.NumDocs()), uint32(s.cfg.NumTopics))
	for d := 0; d < s.data.NumDocs(); d += 1 {
		row := theta.Row(uint32(d))
		weights(d, row)
		if sum := sstable.Float64VectorSum(row); sum > 0 {
			floats.Scale(1/sum, row)
		}
	}
	return theta.Serialize(s.outPath(".theta"))
}
