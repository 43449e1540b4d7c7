package optimizations

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// v = rho*v + (1-rho)*g^2 ; p -= lr * g / (sqrt(v) + eps)
func RMSpropUpdateInPlace(p, g, v *mat.Dense, lr, rho, eps float64) {
	pr, pc := p.Dims()
	if gr, gc := g.Dims(); gr != pr || gc != pc {
		panic("rmspropUpdateInPlace: grad shape mismatch")
	}
	if vr, vc := v.Dims(); vr != pr || vc != pc {
		panic("rmspropUpdateInPlace: v shape mismatch")
	}
	for i := 0; i < pr; i++ {
		for j := 0; j < pc; j++ {
			gij := g.At(i, j)
			vij := rho*v.At(i, j) + (1.0-rho)*gij*gij
			v.Set(i, j, vij)
			p.Set(i, j, p.At(i, j)-lr*gij/(math.Sqrt(vij)+eps))
		}
	}
}

// RMSprop with a constant learning rate, no momentum, not centered.
type RMSprop struct {
	LearningRate float64
	Rho          float64
	Eps          float64

	V []*mat.Dense
}

func NewRMSprop(lr, rho, eps float64) *RMSprop {
	return &RMSprop{LearningRate: lr, Rho: rho, Eps: eps}
}

func (r *RMSprop) Step(params, grads []*mat.Dense) {
	checkAligned(params, grads)
	if r.V == nil {
		r.V = zerosLikeAll(params)
	}
	for i, p := range params {
		RMSpropUpdateInPlace(p, grads[i], r.V[i], r.LearningRate, r.Rho, r.Eps)
	}
}
