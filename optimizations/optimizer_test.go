package optimizations

import (
	"math"
	"testing"

	"github.com/Sterniko/music/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRMSpropFirstStep(t *testing.T) {
	p := mat.NewDense(1, 2, []float64{1, -1})
	g := mat.NewDense(1, 2, []float64{0.5, -2})
	opt := NewRMSprop(0.001, 0.9, 1e-7)

	opt.Step([]*mat.Dense{p}, []*mat.Dense{g})

	// v = 0.1 * g^2, so the step is lr * g / (sqrt(0.1)*|g| + eps)
	want0 := 1 - 0.001*0.5/(math.Sqrt(0.1*0.25)+1e-7)
	want1 := -1 + 0.001*2/(math.Sqrt(0.1*4)+1e-7)
	assert.InDelta(t, want0, p.At(0, 0), 1e-12)
	assert.InDelta(t, want1, p.At(0, 1), 1e-12)
	assert.InDelta(t, 0.025, opt.V[0].At(0, 0), 1e-12)
}

func TestRMSpropAccumulates(t *testing.T) {
	p := mat.NewDense(1, 1, []float64{0})
	g := mat.NewDense(1, 1, []float64{1})
	opt := NewRMSprop(0.01, 0.9, 1e-7)
	opt.Step([]*mat.Dense{p}, []*mat.Dense{g})
	opt.Step([]*mat.Dense{p}, []*mat.Dense{g})
	assert.InDelta(t, 0.1*0.9+0.1, opt.V[0].At(0, 0), 1e-12)
	assert.Less(t, p.At(0, 0), 0.0)
}

func TestAdamFirstStepMovesByLearningRate(t *testing.T) {
	// with bias correction the first Adam step is lr * sign(g)
	p := mat.NewDense(2, 2, []float64{0, 0, 0, 0})
	g := mat.NewDense(2, 2, []float64{3, -3, 0.01, -0.01})
	opt := NewAdam(0.1, 0.9, 0.999, 1e-12, 0)
	opt.Step([]*mat.Dense{p}, []*mat.Dense{g})

	assert.InDelta(t, -0.1, p.At(0, 0), 1e-6)
	assert.InDelta(t, 0.1, p.At(0, 1), 1e-6)
	assert.InDelta(t, -0.1, p.At(1, 0), 1e-6)
	assert.InDelta(t, 0.1, p.At(1, 1), 1e-6)
	assert.Equal(t, 1, opt.T)
}

func TestAdamDecayMask(t *testing.T) {
	w := mat.NewDense(1, 2, []float64{1, 1})
	b := mat.NewDense(2, 1, []float64{1, 1})
	zero2x1 := mat.NewDense(2, 1, nil)
	opt := NewAdam(0.1, 0.9, 0.999, 1e-8, 0.5)
	opt.DecayMask = []bool{true, false}
	opt.Step([]*mat.Dense{w, b}, []*mat.Dense{mat.NewDense(1, 2, nil), zero2x1})

	assert.InDelta(t, 0.95, w.At(0, 0), 1e-12)
	assert.Equal(t, 1.0, b.At(0, 0))
}

func TestUpdatePanicsOnShapeMismatch(t *testing.T) {
	p := mat.NewDense(2, 2, nil)
	assert.Panics(t, func() {
		RMSpropUpdateInPlace(p, mat.NewDense(1, 2, nil), mat.NewDense(2, 2, nil), 0.1, 0.9, 1e-7)
	})
	assert.Panics(t, func() {
		NewRMSprop(0.1, 0.9, 1e-7).Step([]*mat.Dense{p}, nil)
	})
	assert.Panics(t, func() {
		NewAdam(0.1, 0.9, 0.999, 1e-8, 0).Step([]*mat.Dense{p}, []*mat.Dense{mat.NewDense(2, 1, nil)})
	})
}

func TestAdamSecondStep(t *testing.T) {
	p := mat.NewDense(1, 1, []float64{1})
	opt := NewAdam(0.01, 0.9, 0.999, 1e-8, 0.1)
	opt.Step([]*mat.Dense{p}, []*mat.Dense{mat.NewDense(1, 1, []float64{2})})
	after1 := p.At(0, 0)
	opt.Step([]*mat.Dense{p}, []*mat.Dense{mat.NewDense(1, 1, []float64{-1})})

	m := 0.9*(0.1*2) + 0.1*-1
	v := 0.999*(0.001*4) + 0.001*1
	mhat := m / (1 - 0.9*0.9)
	vhat := v / (1 - 0.999*0.999)
	want := after1 - 0.01*(mhat/(math.Sqrt(vhat)+1e-8)+0.1*after1)
	assert.InDelta(t, want, p.At(0, 0), 1e-12)
	assert.InDelta(t, m, opt.M[0].At(0, 0), 1e-15)
	assert.InDelta(t, v, opt.V[0].At(0, 0), 1e-15)
}

func TestFromConfig(t *testing.T) {
	cfg := params.Config
	opt, err := FromConfig(cfg)
	require.NoError(t, err)
	rms, ok := opt.(*RMSprop)
	require.True(t, ok)
	assert.Equal(t, 0.001, rms.LearningRate)

	cfg.Optimizer = "adam"
	opt, err = FromConfig(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Adam{}, opt)

	cfg.Optimizer = "sgd"
	_, err = FromConfig(cfg)
	assert.Error(t, err)
}
