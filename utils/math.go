package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix functions used by the layers.

// r = rows of matrix
// c = columns of matrix
// o = output
// m = matrix input number 1
// n = matrix input number 2

func Dot(m, n mat.Matrix) mat.Matrix {
	r, _ := m.Dims()
	_, c := n.Dims()
	o := mat.NewDense(r, c, nil)
	o.Product(m, n)
	return o
}

func Multiply(m, n mat.Matrix) mat.Matrix {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.MulElem(m, n)
	return o
}

// AddBias adds the (r x 1) bias column to every column of m.
func AddBias(m, bias *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	rb, cb := bias.Dims()
	if rb != r || cb != 1 {
		panic(fmt.Sprintf("addBias: bias must be (%d x 1), got (%d x %d)", r, rb, cb))
	}
	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			out.Set(i, j, m.At(i, j)+bias.At(i, 0))
		}
	}
	return out
}

func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Softmax of a column vector, shifted by the max for stability.
func Softmax(logits *mat.Dense) *mat.Dense {
	r, c := logits.Dims()
	if c != 1 {
		panic("softmax expects column vector")
	}
	vals := make([]float64, r)
	for i := range vals {
		vals[i] = logits.At(i, 0)
	}
	maxV := floats.Max(vals)
	for i := range vals {
		vals[i] = math.Exp(vals[i] - maxV)
	}
	floats.Scale(1/floats.Sum(vals), vals)
	return mat.NewDense(r, 1, vals)
}

// probability floor applied before the log, same as the usual 1e-7 epsilon.
const ceEps = 1e-7

// CrossEntropyWithIndex returns -log p[target] of softmax(logits) and the
// gradient with respect to the logits (p - onehot).
func CrossEntropyWithIndex(logits *mat.Dense, target int) (float64, *mat.Dense) {
	p := Softmax(logits)
	r, _ := p.Dims()
	if target < 0 || target >= r {
		panic(fmt.Sprintf("crossEntropy: target %d out of range [0,%d)", target, r))
	}
	pt := math.Min(math.Max(p.At(target, 0), ceEps), 1-ceEps)
	loss := -math.Log(pt)
	p.Set(target, 0, p.At(target, 0)-1)
	return loss, p
}

// IsFinite is false for NaN and ±Inf.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
