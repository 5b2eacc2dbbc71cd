// Package eval scores a document clustering induced by a
// document-topic distribution against gold labels, with the Purity
// and NMI measures described in section 16.3 of Manning, Raghavan
// and Schuetze, Introduction to Information Retrieval, 2008.
package eval

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bobonovski/lftm/sstable"
)

// clustering holds the gold and the induced partition of the same
// document collection, as label -> document id sets.
type clustering struct {
	gold    map[string]map[int]bool
	output  map[string]map[int]bool
	numDocs int
}

// newClustering reads a gold label file (one label per line) and a
// document-topic distribution file (one row per document); the
// cluster of a document is its argmax topic.
func newClustering(labelPath, thetaPath string) (*clustering, error) {
	c := &clustering{
		gold:   make(map[string]map[int]bool),
		output: make(map[string]map[int]bool),
	}

	f, err := os.Open(labelPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		label := strings.TrimSpace(scanner.Text())
		addToCluster(c.gold, label, c.numDocs)
		c.numDocs += 1
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	theta, err := sstable.LoadFloat64Matrix(thetaPath)
	if err != nil {
		return nil, err
	}
	rows, _ := theta.Shape()
	if int(rows) != c.numDocs {
		return nil, fmt.Errorf("eval: %s has %d rows, label file has %d documents",
			thetaPath, rows, c.numDocs)
	}
	for d := uint32(0); d < rows; d += 1 {
		topic := floats.MaxIdx(theta.Row(d))
		addToCluster(c.output, fmt.Sprintf("Topic_%d", topic), int(d))
	}
	return c, nil
}

func addToCluster(clusters map[string]map[int]bool, label string, doc int) {
	if clusters[label] == nil {
		clusters[label] = make(map[int]bool)
	}
	clusters[label][doc] = true
}

func overlap(a, b map[int]bool) int {
	n := 0
	for doc := range a {
		if b[doc] {
			n += 1
		}
	}
	return n
}

// Purity is the fraction of documents that land in the majority gold
// class of their induced cluster.
func (c *clustering) Purity() float64 {
	count := 0
	for _, docs := range c.output {
		best := 0
		for _, goldDocs := range c.gold {
			if n := overlap(docs, goldDocs); n > best {
				best = n
			}
		}
		count += best
	}
	return float64(count) / float64(c.numDocs)
}

// NMI is the mutual information of the two partitions normalized by
// the mean of their entropies.
func (c *clustering) NMI() float64 {
	n := float64(c.numDocs)

	mi := 0.0
	for _, docs := range c.output {
		for _, goldDocs := range c.gold {
			common := float64(overlap(docs, goldDocs))
			if common == 0 {
				continue
			}
			mi += (common / n) * math.Log(common*n/
				(float64(len(docs))*float64(len(goldDocs))))
		}
	}

	entropy := 0.0
	for _, docs := range c.output {
		p := float64(len(docs)) / n
		entropy -= p * math.Log(p)
	}
	for _, docs := range c.gold {
		p := float64(len(docs)) / n
		entropy -= p * math.Log(p)
	}

	return 2 * mi / entropy
}

// Evaluate scores every file in dir whose name ends with suffix
// against the gold label file and writes a report with per-file and
// aggregate purity and NMI to "<suffix>.PurityNMI" in the same
// directory.
func Evaluate(labelPath, dir, suffix string) (err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	out, err := os.Create(filepath.Join(dir, suffix+".PurityNMI"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "Golden-labels in: %s\n\n", labelPath)

	var purity, nmi []float64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		c, err := newClustering(labelPath, path)
		if err != nil {
			return err
		}

		p, m := c.Purity(), c.NMI()
		log.Infof("%s: purity %f, NMI %f", path, p, m)
		fmt.Fprintf(w, "Results for: %s\n\tPurity: %f\n\tNMI: %f\n", path, p, m)
		purity = append(purity, p)
		nmi = append(nmi, m)
	}
	if len(purity) == 0 {
		return fmt.Errorf("eval: no file in %s ends with %q", dir, suffix)
	}

	fmt.Fprintf(w, "\n---\nMean purity: %f, standard deviation: %f\n",
		stat.Mean(purity, nil), stat.PopStdDev(purity, nil))
	fmt.Fprintf(w, "Mean NMI: %f, standard deviation: %f\n",
		stat.Mean(nmi, nil), stat.PopStdDev(nmi, nil))
	log.Infof("mean purity %f, mean NMI %f over %d files",
		stat.Mean(purity, nil), stat.Mean(nmi, nil), len(purity))
	return w.Flush()
}
