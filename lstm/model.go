package lstm

import (
	"context"
	"fmt"

	"github.com/Sterniko/music/optimizations"
	"github.com/Sterniko/music/utils"
	"gonum.org/v1/gonum/mat"
)

// Model couples a Network with its optimizer and the knobs of a training step.
type Model struct {
	Net      *Network
	Opt      optimizations.Optimizer
	Workers  int
	GradClip float64
	Seed     uint64

	step int
}

// NewModel wires opt to net. An Adam optimizer gets the network's decay mask
// so biases are not decayed.
func NewModel(net *Network, opt optimizations.Optimizer, workers int, gradClip float64, seed uint64) *Model {
	if a, ok := opt.(*optimizations.Adam); ok && a.DecayMask == nil {
		a.DecayMask = net.Decays()
	}
	return &Model{Net: net, Opt: opt, Workers: workers, GradClip: gradClip, Seed: seed}
}

// Steps is the number of optimizer updates applied so far.
func (m *Model) Steps() int { return m.step }

// TrainBatch takes one optimizer step on inputs (batch x SeqLen*Features) and
// their target ranks, returning the mean batch loss. When the loss is not
// finite the weights are left untouched and the loss is returned as is.
func (m *Model) TrainBatch(ctx context.Context, inputs *mat.Dense, targets []int) (float64, error) {
	rows, _ := inputs.Dims()
	if rows != len(targets) {
		return 0, fmt.Errorf("%w: %d input rows, %d targets", ErrShapeMismatch, rows, len(targets))
	}
	samples := make([]*mat.Dense, rows)
	for i := 0; i < rows; i++ {
		x, err := m.Net.Sample(inputs.RawRowView(i))
		if err != nil {
			return 0, err
		}
		if targets[i] < 0 || targets[i] >= m.Net.Vocab {
			return 0, fmt.Errorf("%w: target %d outside vocabulary of %d", ErrShapeMismatch, targets[i], m.Net.Vocab)
		}
		samples[i] = x
	}

	grads, loss, err := m.Net.BatchGradients(ctx, samples, targets, m.Workers, m.Seed, m.step)
	if err != nil {
		return 0, err
	}
	if !utils.IsFinite(loss) {
		return loss, nil
	}
	if m.GradClip > 0 {
		utils.ClipGrads(m.GradClip, grads...)
	}
	m.Opt.Step(m.Net.Params(), grads)
	m.step++
	return loss, nil
}

// Save writes the network weights to path.
func (m *Model) Save(path string) error {
	return SaveNetwork(m.Net, path)
}
