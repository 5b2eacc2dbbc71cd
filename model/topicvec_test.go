package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobonovski/lftm/corpus"
)

func testWordVectors() *corpus.WordVectors {
	return &corpus.WordVectors{
		Dim: 3,
		Vecs: [][]float64{
			{0.5, -0.2, 0.1},
			{-0.3, 0.8, 0.0},
			{0.1, 0.1, -0.4},
			{0.0, -0.5, 0.6},
		},
	}
}

func TestTopicVectorGradientMatchesFiniteDifference(t *testing.T) {
	vectors := testWordVectors()
	counts := []uint32{2, 0, 1, 3}
	opt := newTopicVectorOptimizer(counts, vectors, 0.01)

	x := []float64{0.2, -0.1, 0.3}
	grad := make([]float64, len(x))
	opt.gradient(grad, x)

	h := 1e-6
	for i := range x {
		xp := append([]float64(nil), x...)
		xm := append([]float64(nil), x...)
		xp[i] += h
		xm[i] -= h
		numeric := (opt.value(xp) - opt.value(xm)) / (2 * h)
		assert.InDelta(t, numeric, grad[i], 1e-5)
	}
}

func TestTopicVectorOptimizerExpectedCount(t *testing.T) {
	vectors := testWordVectors()
	opt := newTopicVectorOptimizer([]uint32{1, 0, 2, 0}, vectors, 0.01)

	assert.Equal(t, 3.0, opt.totalCount)
	// expectedCount[i] = 1*vecs[0][i] + 2*vecs[2][i]
	assert.InDelta(t, 0.7, opt.expectedCount[0], 1e-12)
	assert.InDelta(t, 0.0, opt.expectedCount[1], 1e-12)
	assert.InDelta(t, -0.7, opt.expectedCount[2], 1e-12)
}

func TestStablePartition(t *testing.T) {
	dot := []float64{1000, 999, 998}
	expDot := make([]float64, 3)

	sum := stablePartition(dot, expDot)

	assert.False(t, math.IsInf(sum, 0))
	assert.False(t, math.IsNaN(sum))
	assert.InDelta(t, 1+math.Exp(-1)+math.Exp(-2), sum, 1e-12)
	assert.Equal(t, 1.0, expDot[0])
}

func TestComputePartition(t *testing.T) {
	vectors := testWordVectors()
	x := []float64{0, 0, 0}
	dot := make([]float64, 4)
	expDot := make([]float64, 4)

	sum := computePartition(x, vectors, dot, expDot)

	// all dot products vanish, so the partition is the vocabulary size
	assert.InDelta(t, 4.0, sum, 1e-12)
}

func TestTopicVectorsOptimize(t *testing.T) {
	vectors := testWordVectors()
	counts := newComponentCounts(2, 4)
	counts.incr(0, 0)
	counts.incr(0, 0)
	counts.incr(0, 3)
	// topic 1 gets no latent feature words at all

	tv := newTopicVectors(2, vectors.Dim, 4)
	require.NoError(t, tv.optimize(counts, vectors))

	for topic := 0; topic < 2; topic += 1 {
		assert.True(t, tv.sumExp[topic] > 0)
		assert.False(t, math.IsInf(tv.sumExp[topic], 0))
		assert.True(t, floatsFinite(tv.vecs[topic]))
		// the cache is consistent with the vector
		for w := 0; w < 4; w += 1 {
			assert.InDelta(t, math.Exp(tv.dot[topic][w]), tv.expDot[topic][w], 1e-9)
		}
	}

	// topic 0 should pull words 0 and 3 above the unseen words
	assert.True(t, tv.lfProb(0, 0) > tv.lfProb(0, 1))
	assert.True(t, tv.lfProb(0, 3) > tv.lfProb(0, 2))
}

func TestTopicVectorsOptimizeWarmStartDeterministic(t *testing.T) {
	vectors := testWordVectors()
	counts := newComponentCounts(1, 4)
	counts.incr(0, 1)
	counts.incr(0, 2)

	a := newTopicVectors(1, vectors.Dim, 4)
	b := newTopicVectors(1, vectors.Dim, 4)
	require.NoError(t, a.optimize(counts, vectors))
	require.NoError(t, b.optimize(counts, vectors))

	assert.Equal(t, a.vecs[0], b.vecs[0])
	assert.Equal(t, a.sumExp[0], b.sumExp[0])
}
