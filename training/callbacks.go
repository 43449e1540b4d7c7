package training

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/Sterniko/music/utils"
	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"
)

// Callback runs at the end of every epoch, in the order given to the Trainer.
type Callback interface {
	OnEpochEnd(model Model, logs EpochLogs) error
}

// TrainBeginner is implemented by callbacks that prepare state before the
// first epoch.
type TrainBeginner interface {
	OnTrainBegin() error
}

// BatchStopper is consulted after every batch; true ends training.
type BatchStopper interface {
	StopAfterBatch(loss float64) bool
}

// Checkpoint saves the model whenever the epoch loss is strictly lower than
// every earlier epoch. Pattern receives the 1-based epoch and the loss.
type Checkpoint struct {
	Dir     string
	Pattern string
	// Keep bounds how many snapshots stay on disk; 0 keeps all of them.
	Keep int

	best  float64
	saved []string
}

func NewCheckpoint(dir, pattern string, keep int) *Checkpoint {
	return &Checkpoint{Dir: dir, Pattern: pattern, Keep: keep, best: math.Inf(1)}
}

// Saved lists the snapshots still on disk, oldest first.
func (c *Checkpoint) Saved() []string {
	return append([]string(nil), c.saved...)
}

func (c *Checkpoint) OnEpochEnd(model Model, logs EpochLogs) error {
	if !utils.IsFinite(logs.Loss) || logs.Loss >= c.best {
		return nil
	}
	prev := c.best
	path := filepath.Join(c.Dir, fmt.Sprintf(c.Pattern, logs.Epoch+1, logs.Loss))
	if err := model.Save(path); err != nil {
		return fmt.Errorf("checkpoint %s: %w", path, err)
	}
	c.best = logs.Loss
	c.saved = append(c.saved, path)
	log.WithFields(log.Fields{
		"epoch": logs.Epoch + 1,
		"from":  prev,
		"to":    logs.Loss,
		"path":  path,
	}).Info("loss improved, saving model")

	for c.Keep > 0 && len(c.saved) > c.Keep {
		old := c.saved[0]
		c.saved = c.saved[1:]
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("checkpoint retention: %w", err)
		}
	}
	return nil
}

type lossRow struct {
	Epoch int     `csv:"epoch"`
	Loss  float64 `csv:"loss"`
}

// CSVLogger appends one epoch,loss row per epoch. The file is truncated when
// training begins.
type CSVLogger struct {
	Path string

	wroteHeader bool
}

func (l *CSVLogger) OnTrainBegin() error {
	if dir := filepath.Dir(l.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(l.Path)
	if err != nil {
		return fmt.Errorf("loss log: %w", err)
	}
	l.wroteHeader = false
	return f.Close()
}

func (l *CSVLogger) OnEpochEnd(_ Model, logs EpochLogs) error {
	f, err := os.OpenFile(l.Path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("loss log: %w", err)
	}
	rows := []lossRow{{Epoch: logs.Epoch, Loss: logs.Loss}}
	if l.wroteHeader {
		err = gocsv.MarshalWithoutHeaders(&rows, f)
	} else {
		err = gocsv.Marshal(&rows, f)
		l.wroteHeader = err == nil
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("loss log: %w", err)
	}
	return f.Close()
}

// TerminateOnNaN stops training after the first batch whose loss is NaN or
// infinite.
type TerminateOnNaN struct{}

func (TerminateOnNaN) StopAfterBatch(loss float64) bool { return !utils.IsFinite(loss) }

func (TerminateOnNaN) OnEpochEnd(Model, EpochLogs) error { return nil }
