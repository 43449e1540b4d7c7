package lstm

import (
	"context"
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// sampleRng derives the dropout stream of one sample from the run seed, the
// optimizer step and the sample's position in the batch, so masks do not
// depend on how the batch is sharded across workers.
func sampleRng(seed uint64, step, idx int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(step)<<32|uint64(idx)))
}

// BatchGradients runs forward/backward for every sample and returns the
// gradients averaged over the batch (aligned with Params) together with the
// mean loss. Layers are shared read-only; each worker accumulates into its own
// buffers, which are summed in shard order so the result is independent of
// scheduling.
func (n *Network) BatchGradients(ctx context.Context, samples []*mat.Dense, targets []int, workers int, seed uint64, step int) ([]*mat.Dense, float64, error) {
	if len(samples) != len(targets) {
		return nil, 0, fmt.Errorf("%w: %d samples, %d targets", ErrShapeMismatch, len(samples), len(targets))
	}
	B := len(samples)
	if B == 0 {
		return n.zeroGrads(), 0, nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > B {
		workers = B
	}

	shard := (B + workers - 1) / workers
	nShards := (B + shard - 1) / shard
	accs := make([][]*mat.Dense, nShards)
	losses := make([]float64, nShards)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for s := 0; s < nShards; s++ {
		lo, hi := s*shard, min((s+1)*shard, B)
		g.Go(func() error {
			acc := n.zeroGrads()
			sum := 0.0
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				pass := &Pass{Training: true, Rng: sampleRng(seed, step, i)}
				sum += n.accumulate(samples[i], targets[i], pass, acc)
			}
			accs[s] = acc
			losses[s] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	grads := accs[0]
	total := losses[0]
	for s := 1; s < nShards; s++ {
		for j := range grads {
			grads[j].Add(grads[j], accs[s][j])
		}
		total += losses[s]
	}
	scale := 1.0 / float64(B)
	for _, gr := range grads {
		gr.Scale(scale, gr)
	}
	return grads, total * scale, nil
}
