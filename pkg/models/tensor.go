package models

import (
	"context"
	"fmt"
)

// Tensor is a flat vector of activations
type Tensor []float32

// Clone returns a copy of t
func (t Tensor) Clone() Tensor {
	if t == nil {
		return nil
	}
	out := make(Tensor, len(t))
	copy(out, t)
	return out
}

// Sum returns the sum of all elements
func (t Tensor) Sum() float32 {
	var s float32
	for _, v := range t {
		s += v
	}
	return s
}

// NewLinear creates a dense layer computing out = weights * in + bias.
// weights is row-major with len(bias) rows.
func NewLinear(name string, weights [][]float32, bias []float32) (*Module, error) {
	if len(weights) != len(bias) {
		return nil, fmt.Errorf("linear %s: %d weight rows but %d bias values", name, len(weights), len(bias))
	}
	inSize := -1
	for i, row := range weights {
		if inSize == -1 {
			inSize = len(row)
		}
		if len(row) != inSize {
			return nil, fmt.Errorf("linear %s: row %d has %d columns, expected %d", name, i, len(row), inSize)
		}
	}

	forward := func(ctx context.Context, in Tensor) (Tensor, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(in) != inSize {
			return nil, fmt.Errorf("linear %s: input size %d, expected %d", name, len(in), inSize)
		}
		out := make(Tensor, len(bias))
		for i, row := range weights {
			acc := bias[i]
			for j, w := range row {
				acc += w * in[j]
			}
			out[i] = acc
		}
		return out, nil
	}

	return NewModule(name, forward), nil
}

// Identity returns an input-sized square weight matrix with ones on the diagonal
func Identity(size int) [][]float32 {
	w := make([][]float32, size)
	for i := range w {
		w[i] = make([]float32, size)
		w[i][i] = 1
	}
	return w
}
