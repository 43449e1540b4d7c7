package lstm

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/Sterniko/music/utils"
	"gonum.org/v1/gonum/mat"
)

// LSTM is a single recurrent layer. Gate rows are stacked in the order
// input, forget, cell candidate, output.
type LSTM struct {
	In, Hidden      int
	ReturnSequences bool

	Wx *mat.Dense // (4H x In)
	Wh *mat.Dense // (4H x H)
	B  *mat.Dense // (4H x 1)
}

// NewLSTM uses glorot-uniform input weights, orthogonal recurrent blocks and
// zero biases except the forget gate, which starts at 1.
func NewLSTM(in, hidden int, returnSequences bool, src rand.Source) *LSTM {
	h := hidden
	wh := mat.NewDense(4*h, h, nil)
	for k := 0; k < 4; k++ {
		wh.Slice(k*h, (k+1)*h, 0, h).(*mat.Dense).Copy(utils.Orthogonal(h, src))
	}
	b := mat.NewDense(4*h, 1, nil)
	for i := h; i < 2*h; i++ {
		b.Set(i, 0, 1)
	}
	return &LSTM{
		In:              in,
		Hidden:          h,
		ReturnSequences: returnSequences,
		Wx:              utils.GlorotUniform(4*h, in, in, 4*h, src),
		Wh:              wh,
		B:               b,
	}
}

type lstmCache struct {
	x     *mat.Dense
	h, c  []*mat.VecDense // T+1 entries, index 0 is the zero state
	gates []*mat.VecDense // activated i, f, g, o per step
}

func (l *LSTM) Forward(x *mat.Dense, _ *Pass) (*mat.Dense, any) {
	in, T := x.Dims()
	if in != l.In {
		panic(fmt.Sprintf("lstm forward: input has %d rows, layer expects %d", in, l.In))
	}
	H := l.Hidden

	var zx mat.Dense
	zx.Mul(l.Wx, x) // (4H x T)

	cache := &lstmCache{
		x:     x,
		h:     make([]*mat.VecDense, T+1),
		c:     make([]*mat.VecDense, T+1),
		gates: make([]*mat.VecDense, T),
	}
	cache.h[0] = mat.NewVecDense(H, nil)
	cache.c[0] = mat.NewVecDense(H, nil)

	outCols := 1
	if l.ReturnSequences {
		outCols = T
	}
	out := mat.NewDense(H, outCols, nil)

	for t := 0; t < T; t++ {
		z := mat.NewVecDense(4*H, nil)
		z.MulVec(l.Wh, cache.h[t])
		for k := 0; k < 4*H; k++ {
			z.SetVec(k, z.AtVec(k)+zx.At(k, t)+l.B.At(k, 0))
		}
		for k := 0; k < H; k++ {
			z.SetVec(k, utils.Sigmoid(z.AtVec(k)))
			z.SetVec(H+k, utils.Sigmoid(z.AtVec(H+k)))
			z.SetVec(2*H+k, math.Tanh(z.AtVec(2*H+k)))
			z.SetVec(3*H+k, utils.Sigmoid(z.AtVec(3*H+k)))
		}

		cPrev := cache.c[t]
		c := mat.NewVecDense(H, nil)
		h := mat.NewVecDense(H, nil)
		for k := 0; k < H; k++ {
			ck := z.AtVec(H+k)*cPrev.AtVec(k) + z.AtVec(k)*z.AtVec(2*H+k)
			c.SetVec(k, ck)
			h.SetVec(k, z.AtVec(3*H+k)*math.Tanh(ck))
		}
		cache.gates[t] = z
		cache.c[t+1] = c
		cache.h[t+1] = h

		if l.ReturnSequences {
			out.SetCol(t, h.RawVector().Data)
		}
	}
	if !l.ReturnSequences {
		out.SetCol(0, cache.h[T].RawVector().Data)
	}
	return out, cache
}

// Backward runs backpropagation through time. dy is (H x T) when the layer
// returns sequences, (H x 1) otherwise.
func (l *LSTM) Backward(cache any, dy *mat.Dense) (*mat.Dense, []*mat.Dense) {
	lc := cache.(*lstmCache)
	in, T := lc.x.Dims()
	H := l.Hidden

	dWx := mat.NewDense(4*H, in, nil)
	dWh := mat.NewDense(4*H, H, nil)
	dB := mat.NewDense(4*H, 1, nil)
	dx := mat.NewDense(in, T, nil)

	dhNext := mat.NewVecDense(H, nil)
	dcNext := mat.NewVecDense(H, nil)
	dz := mat.NewVecDense(4*H, nil)
	xt := mat.NewVecDense(in, nil)
	var dxt mat.VecDense

	for t := T - 1; t >= 0; t-- {
		g := lc.gates[t]
		cPrev, ct := lc.c[t], lc.c[t+1]
		for k := 0; k < H; k++ {
			dh := dhNext.AtVec(k)
			switch {
			case l.ReturnSequences:
				dh += dy.At(k, t)
			case t == T-1:
				dh += dy.At(k, 0)
			}
			i, f, gg, o := g.AtVec(k), g.AtVec(H+k), g.AtVec(2*H+k), g.AtVec(3*H+k)
			tc := math.Tanh(ct.AtVec(k))
			dc := dh*o*(1-tc*tc) + dcNext.AtVec(k)

			dz.SetVec(k, dc*gg*i*(1-i))
			dz.SetVec(H+k, dc*cPrev.AtVec(k)*f*(1-f))
			dz.SetVec(2*H+k, dc*i*(1-gg*gg))
			dz.SetVec(3*H+k, dh*tc*o*(1-o))
			dcNext.SetVec(k, dc*f)
		}

		for r := 0; r < in; r++ {
			xt.SetVec(r, lc.x.At(r, t))
		}
		dWx.RankOne(dWx, 1, dz, xt)
		dWh.RankOne(dWh, 1, dz, lc.h[t])
		for k := 0; k < 4*H; k++ {
			dB.Set(k, 0, dB.At(k, 0)+dz.AtVec(k))
		}

		dxt.MulVec(l.Wx.T(), dz)
		dx.SetCol(t, dxt.RawVector().Data)
		dhNext.MulVec(l.Wh.T(), dz)
	}
	return dx, []*mat.Dense{dWx, dWh, dB}
}

func (l *LSTM) Params() []*mat.Dense { return []*mat.Dense{l.Wx, l.Wh, l.B} }
func (l *LSTM) Decays() []bool       { return []bool{true, true, false} }
