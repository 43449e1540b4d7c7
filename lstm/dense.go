package lstm

import (
	"fmt"
	"math/rand/v2"

	"github.com/Sterniko/music/utils"
	"gonum.org/v1/gonum/mat"
)

// Dense is a linear layer, y = W x + b, applied to every column of x.
type Dense struct {
	In, Out int
	W       *mat.Dense // (Out x In)
	B       *mat.Dense // (Out x 1)
}

func NewDense(in, out int, src rand.Source) *Dense {
	return &Dense{
		In:  in,
		Out: out,
		W:   utils.GlorotUniform(out, in, in, out, src),
		B:   mat.NewDense(out, 1, nil),
	}
}

func (d *Dense) Forward(x *mat.Dense, _ *Pass) (*mat.Dense, any) {
	if r, _ := x.Dims(); r != d.In {
		panic(fmt.Sprintf("dense forward: input has %d rows, layer expects %d", r, d.In))
	}
	return utils.AddBias(utils.ToDense(utils.Dot(d.W, x)), d.B), x
}

func (d *Dense) Backward(cache any, dy *mat.Dense) (*mat.Dense, []*mat.Dense) {
	x := cache.(*mat.Dense)
	dW := utils.ToDense(utils.Dot(dy, x.T()))

	// sum gradients over columns for the bias
	_, T := dy.Dims()
	dB := mat.NewDense(d.Out, 1, nil)
	for i := 0; i < d.Out; i++ {
		s := 0.0
		for t := 0; t < T; t++ {
			s += dy.At(i, t)
		}
		dB.Set(i, 0, s)
	}

	dx := utils.ToDense(utils.Dot(d.W.T(), dy))
	return dx, []*mat.Dense{dW, dB}
}

func (d *Dense) Params() []*mat.Dense { return []*mat.Dense{d.W, d.B} }
func (d *Dense) Decays() []bool       { return []bool{true, false} }
