package model

import (
	log "github.com/golang/glog"

	"github.com/bobonovski/lftm/corpus"
)

func init() {
	Register("lfdmminf", NewLFDMMInf)
}

// NewLFDMMInf infers topics on an unseen corpus with a pre-trained
// LF-DMM model, mirroring NewLFLDAInf for the single-topic variant:
// the training sample charges the component counts, only the unseen
// documents are sampled.
func NewLFDMMInf(run Config) (Model, error) {
	paras, train, assignPath, err := loadPretrained(run.ParasPath, "lfdmm")
	if err != nil {
		return nil, err
	}
	unseen, err := corpus.LoadFrozen(run.UnseenPath, train.Vocab)
	if err != nil {
		return nil, err
	}

	cfg := inferenceConfig(paras, run)
	s, err := newSampler(cfg, unseen, cfg.NumTopics)
	if err != nil {
		return nil, err
	}
	m := &LFDMM{
		sampler:       s,
		docTopicCount: make([]uint32, cfg.NumTopics),
		initPolicy:    pickStochastic,
		emPolicy:      pickArgmax,
	}

	// charge the component counts with the training sample; the
	// document topic of a training line is its first value
	trainAssign, err := readAssignments(assignPath, train.Docs, cfg.NumTopics)
	if err != nil {
		return nil, err
	}
	for d, doc := range train.Docs {
		if len(doc) == 0 {
			continue
		}
		topic := topicOf(trainAssign[d][0], cfg.NumTopics)
		for i, word := range doc {
			subtopic := topic
			if trainAssign[d][i] != topic {
				subtopic += cfg.NumTopics
			}
			m.counts.incr(subtopic, word)
		}
	}

	m.initRandom()

	log.Infof("LF-DMM inference: %d topics, %d unseen docs, %d+%d iterations",
		cfg.NumTopics, unseen.NumDocs(), cfg.InitIters, cfg.Iters)
	return m, nil
}
