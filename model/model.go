package model

import (
	"fmt"
)

var constructors = make(map[string]ModelCtor)

// the common interface the latent feature topic model samplers follow
type Model interface {
	// Inference runs the configured two-phase Gibbs sampling
	// schedule (initial Dirichlet multinomial iterations, then
	// EM-style iterations with topic vector re-estimation) and
	// writes the output artifacts of the final sample.
	Inference() error
	// Write serializes the output artifacts of the current
	// sampler state.
	Write() error
}

// new samplers should register themselves using this function
func Register(modelType string, m ModelCtor) {
	constructors[modelType] = m
}

type ModelCtor func(cfg Config) (Model, error)

func GetModel(modelType string) (ModelCtor, error) {
	if _, ok := constructors[modelType]; !ok {
		return nil, fmt.Errorf("model %s not registered", modelType)
	}
	return constructors[modelType], nil
}
