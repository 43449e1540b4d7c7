package lstm

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/Sterniko/music/optimizations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func tinyConfig() BuildConfig {
	return BuildConfig{SeqLen: 4, Features: 1, Hidden: 3, Dense: 2, Vocab: 5, Dropout: 0, Seed: 42}
}

func TestBuildRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		edit func(*BuildConfig)
	}{
		{"zero seq", func(c *BuildConfig) { c.SeqLen = 0 }},
		{"zero hidden", func(c *BuildConfig) { c.Hidden = 0 }},
		{"zero dense", func(c *BuildConfig) { c.Dense = 0 }},
		{"empty vocab", func(c *BuildConfig) { c.Vocab = 0 }},
		{"dropout one", func(c *BuildConfig) { c.Dropout = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tinyConfig()
			tt.edit(&cfg)
			_, err := Build(cfg)
			assert.ErrorIs(t, err, ErrInvalidArchitecture)
		})
	}
}

func TestBuildLayout(t *testing.T) {
	cfg := tinyConfig()
	cfg.Dropout = 0.3
	net, err := Build(cfg)
	require.NoError(t, err)
	require.Len(t, net.Layers, 8)

	l1 := net.Layers[0].(*LSTM)
	assert.True(t, l1.ReturnSequences)
	assert.Equal(t, 1, l1.In)
	assert.True(t, net.Layers[2].(*LSTM).ReturnSequences)
	assert.False(t, net.Layers[4].(*LSTM).ReturnSequences)
	assert.Equal(t, 2, net.Layers[5].(*Dense).Out)
	assert.Equal(t, 5, net.Layers[7].(*Dense).Out)
	for _, i := range []int{1, 3, 6} {
		assert.Equal(t, 0.3, net.Layers[i].(*Dropout).Rate)
	}

	x, err := net.Sample([]float64{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, err)
	p := net.Probabilities(x)
	assert.InDelta(t, 1.0, mat.Sum(p), 1e-12)

	assert.Len(t, net.Params(), 3*3+2*2)
	assert.Len(t, net.Decays(), len(net.Params()))
}

func TestSampleShapeMismatch(t *testing.T) {
	net, err := Build(tinyConfig())
	require.NoError(t, err)
	_, err = net.Sample([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestNetworkGradCheck(t *testing.T) {
	net, err := Build(tinyConfig())
	require.NoError(t, err)
	x, err := net.Sample([]float64{0.2, 0.6, 0.4, 0.8})
	require.NoError(t, err)
	target := 2

	acc := net.zeroGrads()
	net.accumulate(x, target, &Pass{}, acc)
	forward := func() float64 { return net.Loss(x, target) }

	for k, p := range net.Params() {
		r, c := p.Dims()
		finiteDiffCheck(t, "param", p, acc[k], forward, 0, 0)
		finiteDiffCheck(t, "param", p, acc[k], forward, r-1, c-1)
	}
}

func batch(n int, rng *rand.Rand, net *Network) ([]*mat.Dense, []int) {
	samples := make([]*mat.Dense, n)
	targets := make([]int, n)
	for i := range samples {
		row := make([]float64, net.SeqLen*net.Features)
		for j := range row {
			row[j] = rng.Float64()
		}
		samples[i], _ = net.Sample(row)
		targets[i] = rng.IntN(net.Vocab)
	}
	return samples, targets
}

func TestBatchGradientsIndependentOfWorkers(t *testing.T) {
	cfg := tinyConfig()
	cfg.Dropout = 0.3
	net, err := Build(cfg)
	require.NoError(t, err)
	samples, targets := batch(7, rand.New(rand.NewPCG(1, 2)), net)

	serial, lossSerial, err := net.BatchGradients(context.Background(), samples, targets, 1, 9, 3)
	require.NoError(t, err)
	parallel, lossParallel, err := net.BatchGradients(context.Background(), samples, targets, 3, 9, 3)
	require.NoError(t, err)

	assert.InDelta(t, lossSerial, lossParallel, 1e-12)
	for i := range serial {
		assert.True(t, mat.EqualApprox(serial[i], parallel[i], 1e-10), "param %d", i)
	}
}

func TestBatchGradientsCancelled(t *testing.T) {
	net, err := Build(tinyConfig())
	require.NoError(t, err)
	samples, targets := batch(4, rand.New(rand.NewPCG(1, 2)), net)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = net.BatchGradients(ctx, samples, targets, 2, 1, 0)
	assert.True(t, errors.Is(err, context.Canceled))
}

func tinyBatch(net *Network) (*mat.Dense, []int) {
	inputs := mat.NewDense(5, net.SeqLen, []float64{
		0.0, 0.2, 0.4, 0.6,
		0.2, 0.4, 0.6, 0.8,
		0.4, 0.6, 0.8, 0.0,
		0.6, 0.8, 0.0, 0.2,
		0.8, 0.0, 0.2, 0.4,
	})
	return inputs, []int{4, 0, 1, 2, 3}
}

func TestModelTrainBatchReducesLoss(t *testing.T) {
	net, err := Build(tinyConfig())
	require.NoError(t, err)
	m := NewModel(net, optimizations.NewRMSprop(0.01, 0.9, 1e-7), 2, 0, 1)
	inputs, targets := tinyBatch(net)

	first, err := m.TrainBatch(context.Background(), inputs, targets)
	require.NoError(t, err)
	last := first
	for i := 0; i < 200; i++ {
		last, err = m.TrainBatch(context.Background(), inputs, targets)
		require.NoError(t, err)
	}
	assert.Less(t, last, first)
	assert.Equal(t, 201, m.Steps())
}

func TestModelTrainBatchShapeMismatch(t *testing.T) {
	net, err := Build(tinyConfig())
	require.NoError(t, err)
	m := NewModel(net, optimizations.NewRMSprop(0.001, 0.9, 1e-7), 1, 0, 1)

	_, err = m.TrainBatch(context.Background(), mat.NewDense(2, 3, nil), []int{0, 1})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = m.TrainBatch(context.Background(), mat.NewDense(2, 4, nil), []int{0})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = m.TrainBatch(context.Background(), mat.NewDense(1, 4, nil), []int{5})
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Equal(t, 0, m.Steps())
}

func TestNewModelSetsAdamDecayMask(t *testing.T) {
	net, err := Build(tinyConfig())
	require.NoError(t, err)
	adam := optimizations.NewAdam(0.001, 0.9, 0.999, 1e-7, 0.01)
	NewModel(net, adam, 1, 0, 1)
	assert.Equal(t, net.Decays(), adam.DecayMask)
}

func TestSaveLoadNetwork(t *testing.T) {
	cfg := tinyConfig()
	cfg.Dropout = 0.25
	net, err := Build(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ckpt", "weights.gob")
	require.NoError(t, SaveNetwork(net, path))

	loaded, err := LoadNetwork(path)
	require.NoError(t, err)
	require.Len(t, loaded.Layers, len(net.Layers))
	assert.Equal(t, net.SeqLen, loaded.SeqLen)
	assert.Equal(t, net.Vocab, loaded.Vocab)
	assert.Equal(t, 0.25, loaded.Layers[1].(*Dropout).Rate)

	want, got := net.Params(), loaded.Params()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, mat.Equal(want[i], got[i]), "param %d", i)
	}

	x, err := net.Sample([]float64{0.1, 0.5, 0.9, 0.3})
	require.NoError(t, err)
	assert.InDelta(t, net.Loss(x, 1), loaded.Loss(x, 1), 1e-12)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
