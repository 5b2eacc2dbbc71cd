// Command lftm trains and applies the latent feature topic models
// LF-LDA and LF-DMM with collapsed Gibbs sampling, and evaluates the
// resulting document clusterings.
//
// Usage:
//
//	lftm -model lflda -corpus data/corpus.txt -vectors data/wordVectors.txt \
//	     -ntopics 20 -alpha 0.1 -beta 0.01 -lambda 0.6 \
//	     -initers 2000 -niters 200 -name testLFLDA
//
//	lftm -model lfldainf -paras data/testLFLDA.paras -corpus data/unseen.txt
//
//	lftm -model eval -label data/corpus.LABEL -dir data -prob theta
package main

import (
	"flag"
	"time"

	log "github.com/golang/glog"

	"github.com/bobonovski/lftm/eval"
	"github.com/bobonovski/lftm/model"
)

var (
	topicModel = flag.String("model", "", "model type: lflda, lfdmm, lfldainf, lfdmminf or eval")
	corpusPath = flag.String("corpus", "", "path to the topic modeling corpus")
	vectors    = flag.String("vectors", "", "path to the file containing word vectors")
	ntopics    = flag.Int("ntopics", 20, "number of topics")
	alpha      = flag.Float64("alpha", 0.1, "document-topic Dirichlet prior")
	beta       = flag.Float64("beta", 0.01, "topic-word Dirichlet prior")
	lambda     = flag.Float64("lambda", 0.6, "mixture weight of the latent feature component")
	initers    = flag.Int("initers", 2000, "number of initial sampling iterations")
	niters     = flag.Int("niters", 200, "number of EM-style sampling iterations")
	twords     = flag.Int("twords", 20, "number of top topical words to report")
	expName    = flag.String("name", "model", "name of the topic modeling experiment")
	initFile   = flag.String("initFile", "", "topic-assignment file to warm start from")
	savestep   = flag.Int("sstep", 0, "snapshot lag in EM iterations, 0 disables snapshots")
	seed       = flag.Int64("seed", 0, "random seed, 0 seeds from the clock")
	paras      = flag.String("paras", "", "hyperparameter manifest of a pre-trained model")
	dir        = flag.String("dir", "", "directory of document-topic distribution files to evaluate")
	labelFile  = flag.String("label", "", "gold label file, one label per line")
	prob       = flag.String("prob", "theta", "file suffix of the distributions to evaluate")
)

func main() {
	flag.Parse()
	defer log.Flush()

	if *topicModel == "eval" {
		if err := eval.Evaluate(*labelFile, *dir, *prob); err != nil {
			log.Exitf("evaluation failed: %v", err)
		}
		return
	}

	ctor, err := model.GetModel(*topicModel)
	if err != nil {
		log.Exitf("%v (want lflda, lfdmm, lfldainf, lfdmminf or eval)", err)
	}

	randomSeed := *seed
	if randomSeed == 0 {
		randomSeed = time.Now().UnixNano()
	}
	cfg := model.Config{
		Model:       *topicModel,
		CorpusPath:  *corpusPath,
		VectorsPath: *vectors,
		NumTopics:   *ntopics,
		Alpha:       *alpha,
		Beta:        *beta,
		Lambda:      *lambda,
		InitIters:   *initers,
		Iters:       *niters,
		TopWords:    *twords,
		ExpName:     *expName,
		InitFile:    *initFile,
		SaveStep:    *savestep,
		Seed:        randomSeed,
		ParasPath:   *paras,
		UnseenPath:  *corpusPath,
	}

	m, err := ctor(cfg)
	if err != nil {
		log.Exitf("initialization failed: %v", err)
	}
	if err := m.Inference(); err != nil {
		log.Exitf("inference failed: %v", err)
	}
}
