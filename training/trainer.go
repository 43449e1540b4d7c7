package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sterniko/music/IO"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

var ErrNonFiniteLoss = errors.New("non-finite loss")

// Model is what the trainer drives: one optimizer step per batch and a way to
// snapshot weights.
type Model interface {
	TrainBatch(ctx context.Context, inputs *mat.Dense, targets []int) (float64, error)
	Save(path string) error
}

// EpochLogs is handed to every callback at the end of an epoch.
type EpochLogs struct {
	Epoch    int // 0-based
	Loss     float64
	Batches  int
	Samples  int
	Duration time.Duration
	// Halted is set when a batch callback stopped the epoch early.
	Halted bool
}

// History is the per-epoch loss of a Fit call.
type History struct {
	Loss []float64
}

type Trainer struct {
	Epochs    int
	BatchSize int
	Callbacks []Callback
}

// Fit trains model on ds for t.Epochs epochs, in dataset order. Epoch loss is
// the sample-weighted mean of the batch losses. When a batch callback asks to
// stop, the epoch-end callbacks still run and Fit returns ErrNonFiniteLoss.
func (t *Trainer) Fit(ctx context.Context, model Model, ds *IO.Dataset) (History, error) {
	var history History
	if ds == nil || ds.Len() == 0 {
		return history, fmt.Errorf("fit: %w", IO.ErrEmptyDataset)
	}
	if t.BatchSize < 1 {
		return history, fmt.Errorf("fit: batch size %d", t.BatchSize)
	}

	logger := log.WithFields(log.Fields{
		"function": "Trainer.Fit",
		"samples":  ds.Len(),
		"batch":    t.BatchSize,
	})

	for _, cb := range t.Callbacks {
		if tb, ok := cb.(TrainBeginner); ok {
			if err := tb.OnTrainBegin(); err != nil {
				return history, err
			}
		}
	}

	N := ds.Len()
	for e := 0; e < t.Epochs; e++ {
		start := time.Now()
		logs := EpochLogs{Epoch: e}
		var sum float64

		for lo := 0; lo < N; lo += t.BatchSize {
			if err := ctx.Err(); err != nil {
				return history, err
			}
			hi := min(lo+t.BatchSize, N)
			x, y := ds.Batch(lo, hi)
			loss, err := model.TrainBatch(ctx, x, y)
			if err != nil {
				return history, fmt.Errorf("epoch %d batch %d: %w", e, logs.Batches, err)
			}
			sum += loss * float64(len(y))
			logs.Samples += len(y)
			logs.Batches++

			if t.stopAfterBatch(loss) {
				logs.Halted = true
				logger.WithFields(log.Fields{
					"epoch": e,
					"batch": logs.Batches - 1,
					"loss":  loss,
				}).Warn("batch loss is not finite, terminating training")
				break
			}
		}

		logs.Loss = sum / float64(logs.Samples)
		logs.Duration = time.Since(start)
		history.Loss = append(history.Loss, logs.Loss)
		logger.WithFields(log.Fields{
			"epoch": e + 1,
			"of":    t.Epochs,
			"loss":  fmt.Sprintf("%.4f", logs.Loss),
			"time":  logs.Duration.Round(time.Millisecond),
		}).Info("epoch finished")

		for _, cb := range t.Callbacks {
			if err := cb.OnEpochEnd(model, logs); err != nil {
				return history, err
			}
		}
		if logs.Halted {
			return history, fmt.Errorf("%w at epoch %d", ErrNonFiniteLoss, e)
		}
	}
	return history, nil
}

func (t *Trainer) stopAfterBatch(loss float64) bool {
	stop := false
	for _, cb := range t.Callbacks {
		if bs, ok := cb.(BatchStopper); ok && bs.StopAfterBatch(loss) {
			stop = true
		}
	}
	return stop
}
