package lstm

import (
	"github.com/Sterniko/music/utils"
	"gonum.org/v1/gonum/mat"
)

// Dropout zeroes each element with probability Rate during training and
// scales survivors by 1/(1-Rate). It is the identity outside training.
type Dropout struct {
	Rate float64
}

func (d *Dropout) Forward(x *mat.Dense, pass *Pass) (*mat.Dense, any) {
	if pass == nil || !pass.Training || d.Rate <= 0 {
		return x, nil
	}
	r, c := x.Dims()
	keep := 1.0 / (1.0 - d.Rate)
	mask := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if pass.Rng.Float64() >= d.Rate {
				mask.Set(i, j, keep)
			}
		}
	}
	return utils.ToDense(utils.Multiply(x, mask)), mask
}

func (d *Dropout) Backward(cache any, dy *mat.Dense) (*mat.Dense, []*mat.Dense) {
	mask, ok := cache.(*mat.Dense)
	if !ok || mask == nil {
		return dy, nil
	}
	return utils.ToDense(utils.Multiply(dy, mask)), nil
}

func (d *Dropout) Params() []*mat.Dense { return nil }
func (d *Dropout) Decays() []bool       { return nil }
