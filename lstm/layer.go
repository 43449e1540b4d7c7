package lstm

import (
	"errors"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrShapeMismatch       = errors.New("input shape mismatch")
	ErrInvalidArchitecture = errors.New("invalid architecture")
)

// Pass carries per-forward state. Training enables dropout; Rng drives the
// dropout masks and is private to the goroutine running the pass.
type Pass struct {
	Training bool
	Rng      *rand.Rand
}

// Layer is one step of a Network. Inputs and outputs are (features x T)
// matrices, one column per timestep. Forward returns an opaque cache that the
// matching Backward consumes, so a layer holds no per-sample state and can be
// shared across goroutines as long as its weights are not being updated.
type Layer interface {
	Forward(x *mat.Dense, pass *Pass) (*mat.Dense, any)
	Backward(cache any, dy *mat.Dense) (dx *mat.Dense, grads []*mat.Dense)
	Params() []*mat.Dense
	// Decays marks which of Params take weight decay (kernels yes, biases no).
	Decays() []bool
}
