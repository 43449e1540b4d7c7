package optimizations

import (
	"fmt"

	"github.com/Sterniko/music/params"
	"gonum.org/v1/gonum/mat"
)

// Optimizer applies one update to params given grads of the same shapes.
// State is allocated lazily on the first Step and keyed by position, so the
// params slice must be passed in the same order every time.
type Optimizer interface {
	Step(params, grads []*mat.Dense)
}

// FromConfig builds the optimizer named by cfg.Optimizer.
func FromConfig(cfg params.TrainingConfig) (Optimizer, error) {
	switch cfg.Optimizer {
	case "rmsprop", "":
		return NewRMSprop(cfg.LearningRate, cfg.RMSRho, cfg.RMSEps), nil
	case "adam":
		return NewAdam(cfg.LearningRate, cfg.AdamBeta1, cfg.AdamBeta2, cfg.AdamEps, cfg.WeightDecay), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", cfg.Optimizer)
	}
}

func checkAligned(params, grads []*mat.Dense) {
	if len(params) != len(grads) {
		panic(fmt.Sprintf("optimizer: %d params but %d grads", len(params), len(grads)))
	}
}

func zerosLikeAll(ps []*mat.Dense) []*mat.Dense {
	out := make([]*mat.Dense, len(ps))
	for i, p := range ps {
		r, c := p.Dims()
		out[i] = mat.NewDense(r, c, nil)
	}
	return out
}
