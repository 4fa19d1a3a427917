package runner

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/psantana5/modelguard/pkg/models"
)

// ErrInjectedFailure is returned by models built with a fail interval
var ErrInjectedFailure = errors.New("injected forward failure")

// BuildModel creates one of the built-in models. With failEvery > 0 every
// failEvery-th forward pass fails with ErrInjectedFailure.
func BuildModel(name string, inputSize, failEvery int) (*models.Module, error) {
	var (
		base *models.Module
		err  error
	)
	switch name {
	case "identity":
		base, err = models.NewLinear(name, models.Identity(inputSize), make([]float32, inputSize))
	case "linear":
		base, err = models.NewLinear(name, deterministicWeights(inputSize), make([]float32, inputSize))
	default:
		return nil, fmt.Errorf("unknown model %q (available: identity, linear)", name)
	}
	if err != nil {
		return nil, err
	}
	if failEvery <= 0 {
		return base, nil
	}

	calls := 0
	return models.NewModule(name, func(ctx context.Context, in models.Tensor) (models.Tensor, error) {
		calls++
		if calls%failEvery == 0 {
			return nil, fmt.Errorf("%w (forward pass %d)", ErrInjectedFailure, calls)
		}
		return base.Forward(ctx, in)
	}), nil
}

// deterministicWeights fills a square matrix with a fixed, non-trivial pattern
func deterministicWeights(size int) [][]float32 {
	w := make([][]float32, size)
	for i := range w {
		w[i] = make([]float32, size)
		for j := range w[i] {
			w[i][j] = float32(math.Sin(float64(i*size+j+1))) / float32(size)
		}
	}
	return w
}

// inputFor builds the input of a step. Inputs repeat every 10 steps so a
// cached engine sees hits.
func inputFor(step, size int) models.Tensor {
	in := make(models.Tensor, size)
	phase := float32(step%10) * 0.1
	for i := range in {
		in[i] = phase + float32(i)*0.01
	}
	return in
}
