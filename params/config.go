package params

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid training config")

// Load returns Config overlaid with environment variables. envFile is read
// first when present; a missing file is not an error.
func Load(envFile string) (TrainingConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return TrainingConfig{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := Config
	cfg.InputDir = getEnv("MIDI_DIR", cfg.InputDir)
	cfg.NotesPath = getEnv("NOTES_PATH", cfg.NotesPath)
	cfg.VocabPath = getEnv("VOCAB_PATH", cfg.VocabPath)
	cfg.SeqLen = getEnvAsInt("SEQUENCE_LENGTH", cfg.SeqLen)
	cfg.CorpusFraction = getEnvAsInt("CORPUS_FRACTION", cfg.CorpusFraction)
	cfg.HiddenWidth = getEnvAsInt("HIDDEN_WIDTH", cfg.HiddenWidth)
	cfg.Dropout = getEnvAsFloat("DROPOUT", cfg.Dropout)
	cfg.Optimizer = strings.ToLower(getEnv("OPTIMIZER", cfg.Optimizer))
	cfg.LearningRate = getEnvAsFloat("LEARNING_RATE", cfg.LearningRate)
	cfg.WeightDecay = getEnvAsFloat("WEIGHT_DECAY", cfg.WeightDecay)
	cfg.GradClip = getEnvAsFloat("GRAD_CLIP", cfg.GradClip)
	cfg.Epochs = getEnvAsInt("EPOCHS", cfg.Epochs)
	cfg.BatchSize = getEnvAsInt("BATCH_SIZE", cfg.BatchSize)
	cfg.Workers = getEnvAsInt("WORKERS", cfg.Workers)
	cfg.Seed = uint64(getEnvAsInt("SEED", int(cfg.Seed)))
	cfg.CheckpointDir = getEnv("CHECKPOINT_DIR", cfg.CheckpointDir)
	cfg.KeepCheckpoints = getEnvAsInt("KEEP_CHECKPOINTS", cfg.KeepCheckpoints)
	cfg.LossLogPath = getEnv("LOSS_LOG", cfg.LossLogPath)

	if err := cfg.Validate(); err != nil {
		return TrainingConfig{}, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c TrainingConfig) Validate() error {
	switch {
	case c.SeqLen <= 0:
		return fmt.Errorf("%w: sequence length must be positive, got %d", ErrInvalidConfig, c.SeqLen)
	case c.CorpusFraction <= 0:
		return fmt.Errorf("%w: corpus fraction must be positive, got %d", ErrInvalidConfig, c.CorpusFraction)
	case c.HiddenWidth < 0:
		return fmt.Errorf("%w: hidden width must not be negative, got %d", ErrInvalidConfig, c.HiddenWidth)
	case c.Dropout < 0 || c.Dropout >= 1:
		return fmt.Errorf("%w: dropout must be in [0,1), got %g", ErrInvalidConfig, c.Dropout)
	case c.Optimizer != "rmsprop" && c.Optimizer != "adam":
		return fmt.Errorf("%w: unknown optimizer %q", ErrInvalidConfig, c.Optimizer)
	case c.LearningRate <= 0:
		return fmt.Errorf("%w: learning rate must be positive, got %g", ErrInvalidConfig, c.LearningRate)
	case c.Epochs <= 0:
		return fmt.Errorf("%w: epochs must be positive, got %d", ErrInvalidConfig, c.Epochs)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	case c.KeepCheckpoints < 0:
		return fmt.Errorf("%w: keep checkpoints must not be negative, got %d", ErrInvalidConfig, c.KeepCheckpoints)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
