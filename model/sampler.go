package model

import (
	"math/rand"
	"path/filepath"

	"github.com/bobonovski/lftm/corpus"
)

// phase is the sampling schedule state: a fixed number of initial
// iterations driven purely by Dirichlet multinomial style posteriors,
// then EM-style iterations where the latent feature term reads the
// partition cache refreshed by topic vector estimation.
type phase int

const (
	phaseInit phase = iota
	phaseEM
)

// sampler is the variant-agnostic state shared by both latent
// feature topic models: corpus and word vectors, component counts,
// topic vectors with their partition cache, the per-unit subtopic
// assignments and the explicit random generator. Only the per-unit
// resampling rule (token-level for LFLDA, document-level for LFDMM)
// lives with the concrete model types.
type sampler struct {
	cfg     Config
	data    *corpus.Corpus
	vectors *corpus.WordVectors
	rng     *rand.Rand

	counts      *componentCounts
	tv          *topicVectors
	assignments [][]int

	multiPros []float64 // scratch weights for the categorical draw
	betaSum   float64   // beta * vocabularySize
	phase     phase

	name string // current experiment name, snapshots get an iteration suffix
}

func newSampler(cfg Config, data *corpus.Corpus, numWeights int) (*sampler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	vectors, err := corpus.LoadWordVectors(cfg.VectorsPath, data.Vocab)
	if err != nil {
		return nil, err
	}

	return &sampler{
		cfg:       cfg,
		data:      data,
		vectors:   vectors,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		counts:    newComponentCounts(cfg.NumTopics, data.Vocab.Size()),
		tv:        newTopicVectors(cfg.NumTopics, vectors.Dim, data.Vocab.Size()),
		multiPros: make([]float64, numWeights),
		betaSum:   cfg.Beta * float64(data.Vocab.Size()),
		phase:     phaseInit,
		name:      cfg.ExpName,
	}, nil
}

// lfTerm is the latent feature probability of word under topic for
// the current phase: the smoothed latent feature count ratio before
// topic vectors exist, the cached softmax afterwards.
func (s *sampler) lfTerm(topic int, word uint32) float64 {
	if s.phase == phaseInit {
		return s.counts.lfRatio(topic, word, s.cfg.Beta, s.betaSum)
	}
	return s.tv.lfProb(topic, word)
}

// topicWordProb is the mixture probability of word under topic.
func (s *sampler) topicWordProb(topic int, word uint32) float64 {
	return s.cfg.Lambda*s.lfTerm(topic, word) +
		(1-s.cfg.Lambda)*s.counts.dmRatio(topic, word, s.cfg.Beta, s.betaSum)
}

// outPath builds an output artifact path under the experiment's
// output directory with the current experiment name.
func (s *sampler) outPath(suffix string) string {
	return filepath.Join(s.cfg.OutputDir(), s.name+suffix)
}
