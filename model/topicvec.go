package model

import (
	"fmt"
	"math"
	"runtime"

	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/bobonovski/lftm/corpus"
)

// topicVectors holds the per-topic embedding vectors together with
// the partition cache consumed by the samplers: for every topic the
// dot products and exponentials of its vector against every word
// vector, and their sum (the softmax normalizer). The cache is
// replaced wholesale by optimize once per EM iteration and read-only
// during the following sampling sweep.
type topicVectors struct {
	numTopics int
	dim       int

	vecs   [][]float64 // numTopics x dim, warm started across iterations
	dot    [][]float64 // numTopics x vocabSize
	expDot [][]float64 // numTopics x vocabSize
	sumExp []float64   // partition function value per topic
}

func newTopicVectors(numTopics, dim int, vocabSize uint32) *topicVectors {
	tv := &topicVectors{
		numTopics: numTopics,
		dim:       dim,
		vecs:      make([][]float64, numTopics),
		dot:       make([][]float64, numTopics),
		expDot:    make([][]float64, numTopics),
		sumExp:    make([]float64, numTopics),
	}
	for t := 0; t < numTopics; t += 1 {
		tv.vecs[t] = make([]float64, dim)
		tv.dot[t] = make([]float64, vocabSize)
		tv.expDot[t] = make([]float64, vocabSize)
	}
	return tv
}

// lfProb is the latent feature probability of word under topic, read
// from the partition cache.
func (tv *topicVectors) lfProb(topic int, word uint32) float64 {
	return tv.expDot[topic][word] / tv.sumExp[topic]
}

// optimize re-estimates every topic's vector from its latent feature
// word counts and refreshes the partition cache. Topics are
// independent, so the MAP estimations fan out over a bounded worker
// pool; the call blocks until all of them, including their retry
// loops, have finished. The sampler must not run concurrently.
func (tv *topicVectors) optimize(counts *componentCounts, vectors *corpus.WordVectors) error {
	log.V(1).Info("estimating topic vectors")

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := 0; t < tv.numTopics; t += 1 {
		topic := t
		g.Go(func() error {
			return tv.estimate(topic, counts.lf.Row(uint32(topic)), vectors)
		})
	}
	return g.Wait()
}

// estimate solves one topic's MAP problem, escalating the L2
// regularizer by a factor of 10 and restarting whenever the
// optimizer fails numerically. A zero or non-finite partition value
// after a successful solve is repaired with a max-subtracted softmax
// instead of being discarded.
func (tv *topicVectors) estimate(topic int, wordCount []uint32, vectors *corpus.WordVectors) error {
	l2 := l2Regularizer
	for retry := 0; retry <= maxOptimizerRetries; retry += 1 {
		opt := newTopicVectorOptimizer(wordCount, vectors, l2)
		solution, err := opt.solve(tv.vecs[topic])
		if err != nil {
			log.Warningf("topic %d: MAP estimation failed (l2=%g): %v", topic, l2, err)
			l2 *= 10
			continue
		}

		copy(tv.vecs[topic], solution)
		sum := computePartition(solution, vectors, tv.dot[topic], tv.expDot[topic])
		if sum == 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
			sum = stablePartition(tv.dot[topic], tv.expDot[topic])
		}
		tv.sumExp[topic] = sum
		return nil
	}
	return fmt.Errorf("topic %d: vector estimation did not recover after %d retries",
		topic, maxOptimizerRetries+1)
}

// topicVectorOptimizer is the MAP estimation problem of a single
// topic vector: maximize
//
//	sum_w count[w]*<x, emb[w]> - N*log(sum_w exp<x, emb[w]>) - l2*|x|^2
//
// over x, solved as a minimization of the negated objective with
// LBFGS. The word count slice is a read-only view into the latent
// feature count table, stable for the duration of the solve.
type topicVectorOptimizer struct {
	wordCount  []uint32
	totalCount float64
	vectors    *corpus.WordVectors
	l2         float64

	// expectedCount[i] = sum_w count[w]*emb[w][i], fixed per solve
	expectedCount []float64

	// per-evaluation scratch
	dot    []float64
	expDot []float64
}

func newTopicVectorOptimizer(wordCount []uint32, vectors *corpus.WordVectors, l2 float64) *topicVectorOptimizer {
	o := &topicVectorOptimizer{
		wordCount:     wordCount,
		vectors:       vectors,
		l2:            l2,
		expectedCount: make([]float64, vectors.Dim),
		dot:           make([]float64, len(wordCount)),
		expDot:        make([]float64, len(wordCount)),
	}
	for w, count := range wordCount {
		if count == 0 {
			continue
		}
		o.totalCount += float64(count)
		floats.AddScaled(o.expectedCount, float64(count), vectors.Vecs[w])
	}
	return o
}

func (o *topicVectorOptimizer) solve(warmStart []float64) ([]float64, error) {
	problem := optimize.Problem{
		Func: o.value,
		Grad: o.gradient,
	}
	settings := &optimize.Settings{
		GradientThreshold: tolerance,
		MajorIterations:   maxLBFGSIterations,
	}

	x0 := make([]float64, len(warmStart))
	copy(x0, warmStart)

	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if err != nil {
		return nil, err
	}
	if !floatsFinite(result.X) || math.IsNaN(result.F) {
		return nil, fmt.Errorf("non-finite solution")
	}
	return result.X, nil
}

// value is the negated MAP objective.
func (o *topicVectorOptimizer) value(x []float64) float64 {
	partition := computePartition(x, o.vectors, o.dot, o.expDot)

	value := 0.0
	for w, count := range o.wordCount {
		if count == 0 {
			continue
		}
		value += float64(count) * o.dot[w]
	}
	value -= o.totalCount * math.Log(partition)
	value -= o.l2 * floats.Dot(x, x)
	return -value
}

// gradient is the negated MAP gradient:
// grad[i] = expectedCount[i] - N*E_softmax[emb[.][i]] - 2*l2*x[i].
func (o *topicVectorOptimizer) gradient(grad, x []float64) {
	partition := computePartition(x, o.vectors, o.dot, o.expDot)

	for i := 0; i < len(x); i += 1 {
		expectation := 0.0
		for w := range o.expDot {
			expectation += o.vectors.Vecs[w][i] * o.expDot[w]
		}
		expectation /= partition

		grad[i] = -(o.expectedCount[i] - o.totalCount*expectation - 2*o.l2*x[i])
	}
}

// computePartition fills dot and expDot for every vocabulary word
// against the topic vector x and returns the partition function
// value.
func computePartition(x []float64, vectors *corpus.WordVectors, dot, expDot []float64) float64 {
	sum := 0.0
	for w := range dot {
		dot[w] = floats.Dot(vectors.Vecs[w], x)
		expDot[w] = math.Exp(dot[w])
		sum += expDot[w]
	}
	return sum
}

// stablePartition recomputes the softmax normalizer from already
// computed dot products with max-subtraction, for the case where the
// plain exponentials overflow or vanish.
func stablePartition(dot, expDot []float64) float64 {
	max := floats.Max(dot)
	sum := 0.0
	for w := range dot {
		expDot[w] = math.Exp(dot[w] - max)
		sum += expDot[w]
	}
	return sum
}

func floatsFinite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
