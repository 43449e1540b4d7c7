package lstm

import (
	"fmt"
	"math/rand/v2"

	"github.com/Sterniko/music/utils"
	"gonum.org/v1/gonum/mat"
)

// Network is a sequential stack of layers ending in a softmax over the
// vocabulary (applied inside the loss).
type Network struct {
	SeqLen   int
	Features int
	Vocab    int
	Layers   []Layer
}

type BuildConfig struct {
	SeqLen   int
	Features int
	Hidden   int // width of every LSTM layer
	Dense    int // width of the hidden dense layer
	Vocab    int
	Dropout  float64
	Seed     uint64
}

// Build assembles
//
//	LSTM(Hidden, seq) -> Dropout -> LSTM(Hidden, seq) -> Dropout -> LSTM(Hidden)
//	-> Dense(Dense) -> Dropout -> Dense(Vocab) -> softmax
func Build(cfg BuildConfig) (*Network, error) {
	switch {
	case cfg.SeqLen <= 0, cfg.Features <= 0:
		return nil, fmt.Errorf("%w: input shape (%d x %d)", ErrInvalidArchitecture, cfg.SeqLen, cfg.Features)
	case cfg.Hidden <= 0, cfg.Dense <= 0:
		return nil, fmt.Errorf("%w: hidden=%d dense=%d", ErrInvalidArchitecture, cfg.Hidden, cfg.Dense)
	case cfg.Vocab <= 0:
		return nil, fmt.Errorf("%w: vocabulary size %d", ErrInvalidArchitecture, cfg.Vocab)
	case cfg.Dropout < 0 || cfg.Dropout >= 1:
		return nil, fmt.Errorf("%w: dropout %g", ErrInvalidArchitecture, cfg.Dropout)
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	return &Network{
		SeqLen:   cfg.SeqLen,
		Features: cfg.Features,
		Vocab:    cfg.Vocab,
		Layers: []Layer{
			NewLSTM(cfg.Features, cfg.Hidden, true, src),
			&Dropout{Rate: cfg.Dropout},
			NewLSTM(cfg.Hidden, cfg.Hidden, true, src),
			&Dropout{Rate: cfg.Dropout},
			NewLSTM(cfg.Hidden, cfg.Hidden, false, src),
			NewDense(cfg.Hidden, cfg.Dense, src),
			&Dropout{Rate: cfg.Dropout},
			NewDense(cfg.Dense, cfg.Vocab, src),
		},
	}, nil
}

// Params flattens every layer's parameters in layer order.
func (n *Network) Params() []*mat.Dense {
	var ps []*mat.Dense
	for _, l := range n.Layers {
		ps = append(ps, l.Params()...)
	}
	return ps
}

func (n *Network) Decays() []bool {
	var ds []bool
	for _, l := range n.Layers {
		ds = append(ds, l.Decays()...)
	}
	return ds
}

// CountParams is the number of trainable scalars.
func (n *Network) CountParams() int {
	total := 0
	for _, p := range n.Params() {
		r, c := p.Dims()
		total += r * c
	}
	return total
}

// Sample reshapes one flattened input row (timestep-major) into the
// (Features x SeqLen) matrix the first layer consumes.
func (n *Network) Sample(row []float64) (*mat.Dense, error) {
	if len(row) != n.SeqLen*n.Features {
		return nil, fmt.Errorf("%w: row has %d values, want %d x %d", ErrShapeMismatch, len(row), n.SeqLen, n.Features)
	}
	x := mat.NewDense(n.Features, n.SeqLen, nil)
	for t := 0; t < n.SeqLen; t++ {
		for f := 0; f < n.Features; f++ {
			x.Set(f, t, row[t*n.Features+f])
		}
	}
	return x, nil
}

func (n *Network) forward(x *mat.Dense, pass *Pass) (*mat.Dense, []any) {
	caches := make([]any, len(n.Layers))
	y := x
	for i, l := range n.Layers {
		y, caches[i] = l.Forward(y, pass)
	}
	return y, caches
}

// Probabilities returns softmax(logits) for one sample with dropout disabled.
func (n *Network) Probabilities(x *mat.Dense) *mat.Dense {
	logits, _ := n.forward(x, &Pass{})
	return utils.Softmax(logits)
}

// Loss is the categorical cross-entropy of one sample with dropout disabled.
func (n *Network) Loss(x *mat.Dense, target int) float64 {
	logits, _ := n.forward(x, &Pass{})
	loss, _ := utils.CrossEntropyWithIndex(logits, target)
	return loss
}

// accumulate runs forward + backward for one sample, adds its parameter
// gradients into acc (aligned with Params) and returns its loss.
func (n *Network) accumulate(x *mat.Dense, target int, pass *Pass, acc []*mat.Dense) float64 {
	logits, caches := n.forward(x, pass)
	loss, dy := utils.CrossEntropyWithIndex(logits, target)

	// walk layers backwards; param offsets are found from the end
	offset := len(acc)
	for i := len(n.Layers) - 1; i >= 0; i-- {
		var grads []*mat.Dense
		dy, grads = n.Layers[i].Backward(caches[i], dy)
		offset -= len(grads)
		for j, g := range grads {
			acc[offset+j].Add(acc[offset+j], g)
		}
	}
	return loss
}

func (n *Network) zeroGrads() []*mat.Dense {
	ps := n.Params()
	out := make([]*mat.Dense, len(ps))
	for i, p := range ps {
		out[i] = utils.ZerosLike(p)
	}
	return out
}
