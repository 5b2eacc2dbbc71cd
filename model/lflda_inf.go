package model

import (
	"fmt"
	"path/filepath"

	log "github.com/golang/glog"

	"github.com/bobonovski/lftm/corpus"
	"github.com/bobonovski/lftm/sstable"
)

func init() {
	Register("lfldainf", NewLFLDAInf)
}

// loadPretrained reconstructs the training half of a pre-trained
// model: it parses the hyperparameter manifest, rebuilds the frozen
// vocabulary from the training corpus and returns the manifest
// config, the training corpus, and the path of the persisted
// training assignments.
func loadPretrained(parasPath, wantModel string) (Config, *corpus.Corpus, string, error) {
	paras, err := ParseParas(parasPath)
	if err != nil {
		return Config{}, nil, "", err
	}
	if paras.Model != wantModel {
		return Config{}, nil, "", fmt.Errorf("inference: %s was trained with model %q, want %q",
			parasPath, paras.Model, wantModel)
	}

	log.Infof("loading pre-trained %s model from %s", paras.Model, parasPath)
	train, err := corpus.Load(paras.CorpusPath)
	if err != nil {
		return Config{}, nil, "", err
	}
	assignPath := filepath.Join(filepath.Dir(paras.CorpusPath), paras.ExpName+".topicAssignments")
	return paras, train, assignPath, nil
}

// inferenceConfig merges a training manifest with the settings of an
// inference run: model hyperparameters come from the manifest, the
// sampling schedule and naming from the run.
func inferenceConfig(paras, run Config) Config {
	cfg := run
	cfg.NumTopics = paras.NumTopics
	cfg.Alpha = paras.Alpha
	cfg.Beta = paras.Beta
	cfg.Lambda = paras.Lambda
	cfg.VectorsPath = paras.VectorsPath
	cfg.Model = paras.Model
	cfg.CorpusPath = run.UnseenPath
	cfg.InitFile = ""
	return cfg
}

// NewLFLDAInf infers topics on an unseen corpus with a pre-trained
// LF-LDA model: the topic-word count tables are charged with the
// training corpus' persisted assignments, then only the unseen
// documents are sampled. Words outside the training vocabulary are
// silently dropped.
func NewLFLDAInf(run Config) (Model, error) {
	paras, train, assignPath, err := loadPretrained(run.ParasPath, "lflda")
	if err != nil {
		return nil, err
	}
	unseen, err := corpus.LoadFrozen(run.UnseenPath, train.Vocab)
	if err != nil {
		return nil, err
	}

	cfg := inferenceConfig(paras, run)
	s, err := newSampler(cfg, unseen, 2*cfg.NumTopics)
	if err != nil {
		return nil, err
	}
	m := &LFLDA{
		sampler:  s,
		docTopic: sstable.NewUint32Matrix(uint32(unseen.NumDocs()), uint32(cfg.NumTopics)),
	}

	// charge the component counts with the training sample
	trainAssign, err := readAssignments(assignPath, train.Docs, cfg.NumTopics)
	if err != nil {
		return nil, err
	}
	for d, doc := range train.Docs {
		for i, word := range doc {
			m.counts.incr(trainAssign[d][i], word)
		}
	}

	m.initRandom()

	log.Infof("LF-LDA inference: %d topics, %d unseen docs, %d+%d iterations",
		cfg.NumTopics, unseen.NumDocs(), cfg.InitIters, cfg.Iters)
	return m, nil
}
