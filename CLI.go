package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Sterniko/music/IO"
	"github.com/Sterniko/music/lstm"
	"github.com/Sterniko/music/optimizations"
	"github.com/Sterniko/music/params"
	"github.com/Sterniko/music/training"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level, err := log.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return ctx, err
	}
	log.SetLevel(level)
	switch strings.ToLower(cmd.String("log-format")) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return ctx, fmt.Errorf("unknown log format %q", cmd.String("log-format"))
	}
	log.SetOutput(os.Stderr)
	return ctx, nil
}

// loadConfig layers defaults, the env file, the environment and finally the
// flags that were set explicitly.
func loadConfig(cmd *cli.Command) (params.TrainingConfig, error) {
	cfg, err := params.Load(cmd.String("env"))
	if err != nil {
		return cfg, err
	}
	if cmd.IsSet("midi-dir") {
		cfg.InputDir = cmd.String("midi-dir")
	}
	if cmd.IsSet("notes") {
		cfg.NotesPath = cmd.String("notes")
	}
	if cmd.IsSet("epochs") {
		cfg.Epochs = int(cmd.Int("epochs"))
	}
	if cmd.IsSet("batch-size") {
		cfg.BatchSize = int(cmd.Int("batch-size"))
	}
	if cmd.IsSet("hidden-width") {
		cfg.HiddenWidth = int(cmd.Int("hidden-width"))
	}
	if cmd.IsSet("workers") {
		cfg.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("optimizer") {
		cfg.Optimizer = strings.ToLower(cmd.String("optimizer"))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ScanAction scans the MIDI directory, persists the corpus and exports the
// vocabulary.
func ScanAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	corpus, report, err := IO.ScanCorpus(ctx, cfg.InputDir, cfg.NotesPath)
	if err != nil {
		return err
	}
	vocab := IO.BuildVocabulary(corpus)
	if err := IO.ExportVocabJSON(vocab, cfg.VocabPath); err != nil {
		return fmt.Errorf("export vocab: %w", err)
	}
	log.WithFields(log.Fields{
		"symbols": corpus.Len(),
		"vocab":   vocab.Size(),
		"files":   len(report.Files),
		"skipped": len(report.Skipped),
		"flat":    report.Flat,
	}).Info("corpus ready")
	return nil
}

// TrainAction runs the whole pipeline: scan (or load) the corpus, build the
// sequences and the network, then fit.
func TrainAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var corpus IO.Corpus
	if cmd.Bool("from-notes") {
		corpus, err = IO.LoadCorpus(cfg.NotesPath)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"path": cfg.NotesPath, "symbols": corpus.Len()}).Info("loaded notes")
	} else {
		corpus, _, err = IO.ScanCorpus(ctx, cfg.InputDir, cfg.NotesPath)
		if err != nil {
			return err
		}
	}

	vocab := IO.BuildVocabulary(corpus)
	if err := IO.ExportVocabJSON(vocab, cfg.VocabPath); err != nil {
		return fmt.Errorf("export vocab: %w", err)
	}
	ds, err := IO.PrepareSequences(corpus, vocab, cfg.SeqLen, cfg.CorpusFraction)
	if err != nil {
		return err
	}

	model, err := buildModel(cfg, corpus.Len(), vocab.Size())
	if err != nil {
		return err
	}

	trainer := &training.Trainer{
		Epochs:    cfg.Epochs,
		BatchSize: cfg.BatchSize,
		Callbacks: []training.Callback{
			training.NewCheckpoint(cfg.CheckpointDir, cfg.CheckpointPattern, cfg.KeepCheckpoints),
			&training.CSVLogger{Path: cfg.LossLogPath},
			training.TerminateOnNaN{},
		},
	}
	history, err := trainer.Fit(ctx, model, ds)
	if len(history.Loss) > 0 {
		fmt.Println(lossPlot(history.Loss))
		log.WithField("loss", history.Loss).Info("history")
	}
	return err
}

// buildModel sizes the network from the corpus: every LSTM is as wide as
// the corpus is long unless HiddenWidth overrides it.
func buildModel(cfg params.TrainingConfig, corpusLen, vocabSize int) (*lstm.Model, error) {
	hidden := cfg.HiddenWidth
	if hidden == 0 {
		hidden = corpusLen
	}
	net, err := lstm.Build(lstm.BuildConfig{
		SeqLen:   cfg.SeqLen,
		Features: 1,
		Hidden:   hidden,
		Dense:    max(1, hidden/2),
		Vocab:    vocabSize,
		Dropout:  cfg.Dropout,
		Seed:     cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	opt, err := optimizations.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"hidden":    hidden,
		"vocab":     vocabSize,
		"params":    net.CountParams(),
		"optimizer": cfg.Optimizer,
		"workers":   cfg.Workers,
	}).Info("model built")
	return lstm.NewModel(net, opt, cfg.Workers, cfg.GradClip, cfg.Seed), nil
}
