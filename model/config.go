package model

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// l2Regularizer is the base L2 penalty for learning topic
	// vectors, escalated on numerical failure.
	l2Regularizer = 0.01
	// tolerance is the gradient tolerance for LBFGS convergence.
	tolerance = 0.05
	// maxLBFGSIterations caps a single MAP estimation.
	maxLBFGSIterations = 600
	// maxOptimizerRetries caps the regularizer escalation loop.
	maxOptimizerRetries = 8
)

// Config collects the hyperparameters and file paths of a topic
// modeling experiment.
type Config struct {
	Model       string  // registered model name
	CorpusPath  string  // training corpus, one document per line
	VectorsPath string  // word vectors file
	NumTopics   int     // number of topics
	Alpha       float64 // document-topic Dirichlet prior
	Beta        float64 // topic-word Dirichlet prior
	Lambda      float64 // mixture weight of the latent feature component
	InitIters   int     // initial sampling iterations
	Iters       int     // EM-style sampling iterations
	TopWords    int     // top topical words to report
	ExpName     string  // experiment name, prefixes every output file
	InitFile    string  // optional topic-assignment file to warm start from
	SaveStep    int     // snapshot lag in EM iterations, 0 disables
	Seed        int64   // random seed

	// inference on unseen data
	ParasPath  string // manifest of the pre-trained model
	UnseenPath string // unseen corpus
}

// OutputDir is the directory the output artifacts are written to:
// the directory containing the corpus, following the convention that
// an experiment lives next to its data.
func (c Config) OutputDir() string {
	if c.UnseenPath != "" {
		return filepath.Dir(c.UnseenPath)
	}
	return filepath.Dir(c.CorpusPath)
}

func (c Config) validate() error {
	if c.NumTopics <= 0 {
		return fmt.Errorf("config: ntopics must be positive, got %d", c.NumTopics)
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("config: lambda must be in [0,1], got %g", c.Lambda)
	}
	if c.InitIters < 0 || c.Iters < 0 {
		return fmt.Errorf("config: iteration counts must be non-negative")
	}
	return nil
}

// WriteParas writes the hyperparameter manifest of a trained model,
// one "-key<TAB>value" line per setting. The manifest is what an
// inference run parses to reconstruct the training setup.
func (c Config) WriteParas(fn string) (err error) {
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
	fmt.Fprintf(w, "-model\t%s\n", c.Model)
	fmt.Fprintf(w, "-corpus\t%s\n", c.CorpusPath)
	fmt.Fprintf(w, "-vectors\t%s\n", c.VectorsPath)
	fmt.Fprintf(w, "-ntopics\t%d\n", c.NumTopics)
	fmt.Fprintf(w, "-alpha\t%g\n", c.Alpha)
	fmt.Fprintf(w, "-beta\t%g\n", c.Beta)
	fmt.Fprintf(w, "-lambda\t%g\n", c.Lambda)
	fmt.Fprintf(w, "-initers\t%d\n", c.InitIters)
	fmt.Fprintf(w, "-niters\t%d\n", c.Iters)
	fmt.Fprintf(w, "-twords\t%d\n", c.TopWords)
	fmt.Fprintf(w, "-name\t%s\n", c.ExpName)
	if c.InitFile != "" {
		fmt.Fprintf(w, "-initFile\t%s\n", c.InitFile)
	}
	if c.SaveStep > 0 {
		fmt.Fprintf(w, "-sstep\t%d\n", c.SaveStep)
	}
	return w.Flush()
}

// ParseParas reads a hyperparameter manifest back into a Config.
func ParseParas(fn string) (Config, error) {
	var cfg Config

	f, err := os.Open(fn)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	paras := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return cfg, fmt.Errorf("paras: malformed line %q in %s", line, fn)
		}
		paras[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return cfg, err
	}

	cfg.Model = paras["-model"]
	cfg.CorpusPath = paras["-corpus"]
	cfg.VectorsPath = paras["-vectors"]
	cfg.ExpName = paras["-name"]
	cfg.InitFile = paras["-initFile"]

	for key, dst := range map[string]*int{
		"-ntopics": &cfg.NumTopics,
		"-initers": &cfg.InitIters,
		"-niters":  &cfg.Iters,
		"-twords":  &cfg.TopWords,
		"-sstep":   &cfg.SaveStep,
	} {
		if val, ok := paras[key]; ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				return cfg, fmt.Errorf("paras: %s: %w", key, err)
			}
			*dst = n
		}
	}
	for key, dst := range map[string]*float64{
		"-alpha":  &cfg.Alpha,
		"-beta":   &cfg.Beta,
		"-lambda": &cfg.Lambda,
	} {
		if val, ok := paras[key]; ok {
			x, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return cfg, fmt.Errorf("paras: %s: %w", key, err)
			}
			*dst = x
		}
	}
	return cfg, nil
}
