package optimizations

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam keeps first/second moment estimates per parameter. With WeightDecay
// set it behaves as AdamW: the decay is applied to the weights directly and
// never enters the moments.
type Adam struct {
	LearningRate float64
	Beta1, Beta2 float64
	Eps          float64
	WeightDecay  float64
	// DecayMask[i] selects which params get weight decay; nil decays all.
	DecayMask []bool

	T    int
	M, V []*mat.Dense
}

func NewAdam(lr, beta1, beta2, eps, weightDecay float64) *Adam {
	return &Adam{LearningRate: lr, Beta1: beta1, Beta2: beta2, Eps: eps, WeightDecay: weightDecay}
}

func (a *Adam) Step(params, grads []*mat.Dense) {
	checkAligned(params, grads)
	if a.M == nil {
		a.M = zerosLikeAll(params)
		a.V = zerosLikeAll(params)
		a.T = 0
	}
	a.T++
	c1 := 1 / (1 - math.Pow(a.Beta1, float64(a.T)))
	c2 := 1 / (1 - math.Pow(a.Beta2, float64(a.T)))
	for i := range params {
		a.update(i, params[i], grads[i], c1, c2)
	}
}

// decays reports whether param i takes weight decay.
func (a *Adam) decays(i int) bool {
	return a.WeightDecay != 0 && (a.DecayMask == nil || a.DecayMask[i])
}

// update applies one bias-corrected step to param i, row by row over the raw
// storage of p, its gradient and both moments.
func (a *Adam) update(i int, p, g *mat.Dense, c1, c2 float64) {
	wd := 0.0
	if a.decays(i) {
		wd = a.WeightDecay
	}
	rows, cols := p.Dims()
	if gr, gc := g.Dims(); gr != rows || gc != cols {
		panic(fmt.Sprintf("adam: param %d is %dx%d but grad is %dx%d", i, rows, cols, gr, gc))
	}
	m, v := a.M[i], a.V[i]
	for r := 0; r < rows; r++ {
		pr, gr := p.RawRowView(r), g.RawRowView(r)
		mr, vr := m.RawRowView(r), v.RawRowView(r)
		for j, gj := range gr {
			mr[j] = a.Beta1*mr[j] + (1-a.Beta1)*gj
			vr[j] = a.Beta2*vr[j] + (1-a.Beta2)*gj*gj
			step := mr[j] * c1 / (math.Sqrt(vr[j]*c2) + a.Eps)
			pr[j] -= a.LearningRate * (step + wd*pr[j])
		}
	}
}
