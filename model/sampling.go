package model

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// nextDiscrete samples an index from an unnormalized weight vector by
// cumulative-sum inversion of a single uniform draw.
func nextDiscrete(rng *rand.Rand, weights []float64) int {
	return discrete(weights, rng.Float64())
}

// discrete is the deterministic core of nextDiscrete: u in [0,1)
// scaled to the weight total selects the first index whose cumulative
// weight exceeds it.
func discrete(weights []float64, u float64) int {
	r := u * floats.Sum(weights)
	cum := 0.0
	for i, w := range weights {
		cum += w
		if cum > r {
			return i
		}
	}
	return len(weights) - 1
}

// componentPolicy names how a token is attributed to one of the two
// generating components given the unnormalized weights of the latent
// feature term and the Dirichlet multinomial term. The single-topic
// model uses pickStochastic during the initial iterations and
// pickArgmax during the EM-style iterations; the multi-topic model
// never uses a policy because its joint 2K-cell draw decides topic
// and component at once.
type componentPolicy int

const (
	// pickStochastic draws the component proportionally to the
	// two weights.
	pickStochastic componentPolicy = iota
	// pickArgmax deterministically picks the numerically larger
	// weight.
	pickArgmax
)

// chooseLatent reports whether the token is attributed to the latent
// feature component.
func (p componentPolicy) chooseLatent(rng *rand.Rand, lfWeight, dmWeight float64) bool {
	if p == pickArgmax {
		return lfWeight > dmWeight
	}
	return rng.Float64()*(lfWeight+dmWeight) < lfWeight
}
