package utils

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Weight init

// GlorotUniform samples a (rows x cols) matrix from U(-l, l) with
// l = sqrt(6 / (fanIn + fanOut)).
func GlorotUniform(rows, cols, fanIn, fanOut int, src rand.Source) *mat.Dense {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	u := distuv.Uniform{Min: -limit, Max: limit, Src: src}
	out := make([]float64, rows*cols)
	for i := range out {
		out[i] = u.Rand()
	}
	return mat.NewDense(rows, cols, out)
}

// Orthogonal returns an (n x n) matrix with orthonormal columns, taken from
// the Q factor of a standard normal sample.
func Orthogonal(n int, src rand.Source) *mat.Dense {
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, norm.Rand())
		}
	}
	var qr mat.QR
	qr.Factorize(a)
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)
	// sign fix so the distribution is uniform over orthogonal matrices
	for j := 0; j < n; j++ {
		if r.At(j, j) < 0 {
			for i := 0; i < n; i++ {
				q.Set(i, j, -q.At(i, j))
			}
		}
	}
	return &q
}

// Helper functions

func ToDense(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(m)
}

func ZerosLike(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	return mat.NewDense(r, c, nil)
}

// ClipGrads scales all grads so their combined norm <= maxNorm.
// Returns the scale actually applied (<=1.0) or 1.0 if no clip.
func ClipGrads(maxNorm float64, grads ...*mat.Dense) float64 {
	if maxNorm <= 0 {
		return 1.0
	}
	sum := 0.0
	for _, g := range grads {
		if g == nil {
			continue
		}
		n := mat.Norm(g, 2)
		sum += n * n
	}
	gn := math.Sqrt(sum)
	if gn <= maxNorm || gn == 0 {
		return 1.0
	}
	s := maxNorm / gn
	for _, g := range grads {
		if g != nil {
			g.Scale(s, g)
		}
	}
	return s
}
