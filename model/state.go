package model

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bobonovski/lftm/sstable"
)

// A subtopic value encodes both the topic and the generating
// component of one token as a single integer in [0, 2K): topic t for
// the latent feature component, t+K for the Dirichlet multinomial
// component.

// topicOf extracts the topic from a subtopic value.
func topicOf(subtopic, numTopics int) int {
	return subtopic % numTopics
}

// isLatent reports whether a subtopic value belongs to the latent
// feature component.
func isLatent(subtopic, numTopics int) bool {
	return subtopic < numTopics
}

// componentCounts is the variant-agnostic half of the count store:
// for each component a topic-word count table plus its per-topic row
// sum. The per-document side differs between the two model variants
// and lives with the samplers. Mutation is strictly single-threaded,
// every token contributes to exactly one component cell at a time.
type componentCounts struct {
	numTopics int
	vocabSize uint32

	lf    *sstable.Uint32Matrix // latent feature topic-word counts
	dm    *sstable.Uint32Matrix // Dirichlet multinomial topic-word counts
	lfSum []uint32              // row sums of lf
	dmSum []uint32              // row sums of dm
}

func newComponentCounts(numTopics int, vocabSize uint32) *componentCounts {
	return &componentCounts{
		numTopics: numTopics,
		vocabSize: vocabSize,
		lf:        sstable.NewUint32Matrix(uint32(numTopics), vocabSize),
		dm:        sstable.NewUint32Matrix(uint32(numTopics), vocabSize),
		lfSum:     make([]uint32, numTopics),
		dmSum:     make([]uint32, numTopics),
	}
}

// incr adds one token with the given subtopic assignment.
func (c *componentCounts) incr(subtopic int, word uint32) {
	topic := uint32(topicOf(subtopic, c.numTopics))
	if isLatent(subtopic, c.numTopics) {
		c.lf.Incr(topic, word, 1)
		c.lfSum[topic] += 1
	} else {
		c.dm.Incr(topic, word, 1)
		c.dmSum[topic] += 1
	}
}

// decr removes one token with the given subtopic assignment. Must be
// paired with a later incr to keep the leave-one-out discipline.
func (c *componentCounts) decr(subtopic int, word uint32) {
	topic := uint32(topicOf(subtopic, c.numTopics))
	if isLatent(subtopic, c.numTopics) {
		c.lf.Decr(topic, word, 1)
		c.lfSum[topic] -= 1
	} else {
		c.dm.Decr(topic, word, 1)
		c.dmSum[topic] -= 1
	}
}

// lfRatio is the Dirichlet multinomial style smoothed probability of
// word under the latent feature counts, used while topic vectors are
// not yet estimated.
func (c *componentCounts) lfRatio(topic int, word uint32, beta, betaSum float64) float64 {
	t := uint32(topic)
	return (float64(c.lf.Get(t, word)) + beta) / (float64(c.lfSum[topic]) + betaSum)
}

// dmRatio is the smoothed Dirichlet multinomial probability of word
// under topic.
func (c *componentCounts) dmRatio(topic int, word uint32, beta, betaSum float64) float64 {
	t := uint32(topic)
	return (float64(c.dm.Get(t, word)) + beta) / (float64(c.dmSum[topic]) + betaSum)
}

// writeAssignments persists the discrete sampler state: one line per
// document, the subtopic value of every token separated by spaces.
func writeAssignments(fn string, assignments [][]int) (err error) {
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
	for _, doc := range assignments {
		for i, subtopic := range doc {
			if i > 0 {
				if _, err := w.WriteString(" "); err != nil {
					return err
				}
			}
			if _, err := w.WriteString(strconv.Itoa(subtopic)); err != nil {
				return err
			}
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

// readAssignments loads a persisted assignment file and validates it
// against the corpus shape: the number of lines must match the
// number of documents and every line must hold one value in [0, 2K)
// per token. Any disagreement is a fatal consistency error.
func readAssignments(fn string, docs [][]uint32, numTopics int) ([][]int, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	assignments := make([][]int, 0, len(docs))
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		docId := len(assignments)
		if docId >= len(docs) {
			return nil, fmt.Errorf("assignments: %s has more lines than the corpus has documents (%d)",
				fn, len(docs))
		}

		var doc []int
		if len(line) > 0 {
			for _, field := range strings.Fields(line) {
				subtopic, err := strconv.Atoi(field)
				if err != nil {
					return nil, fmt.Errorf("assignments: doc %d: %w", docId, err)
				}
				if subtopic < 0 || subtopic >= 2*numTopics {
					return nil, fmt.Errorf("assignments: doc %d: value %d out of range [0,%d)",
						docId, subtopic, 2*numTopics)
				}
				doc = append(doc, subtopic)
			}
		}
		if len(doc) != len(docs[docId]) {
			return nil, fmt.Errorf("assignments: doc %d has %d values, corpus has %d tokens",
				docId, len(doc), len(docs[docId]))
		}
		assignments = append(assignments, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(assignments) != len(docs) {
		return nil, fmt.Errorf("assignments: %s has %d lines, corpus has %d documents",
			fn, len(assignments), len(docs))
	}
	return assignments, nil
}
