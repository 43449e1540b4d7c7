package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:   "music",
		Usage:  "learn next-note prediction from a directory of MIDI files",
		Before: setupLogging,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Usage: "environment file", Value: ".env"},
			&cli.StringFlag{Name: "log-level", Usage: "panic, fatal, error, warn, info, debug or trace", Value: "info"},
			&cli.StringFlag{Name: "log-format", Usage: "text or json", Value: "text"},
			&cli.StringFlag{Name: "midi-dir", Usage: "directory scanned for *.mid (MIDI_DIR)"},
			&cli.StringFlag{Name: "notes", Usage: "serialized corpus path (NOTES_PATH)"},
		},
		Action: TrainAction,
		Commands: []*cli.Command{
			{
				Name:   "scan",
				Usage:  "extract the note corpus and vocabulary only",
				Action: ScanAction,
			},
			{
				Name:  "train",
				Usage: "scan, build sequences and train the network",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "from-notes", Usage: "reuse the saved corpus instead of rescanning"},
					&cli.IntFlag{Name: "epochs", Usage: "training epochs (EPOCHS)"},
					&cli.IntFlag{Name: "batch-size", Usage: "samples per optimizer step (BATCH_SIZE)"},
					&cli.IntFlag{Name: "hidden-width", Usage: "LSTM width, 0 = corpus length (HIDDEN_WIDTH)"},
					&cli.IntFlag{Name: "workers", Usage: "gradient workers per batch (WORKERS)"},
					&cli.StringFlag{Name: "optimizer", Usage: "rmsprop or adam (OPTIMIZER)"},
				},
				Action: TrainAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().Run(ctx, os.Args)
	stop()
	if err != nil {
		log.WithError(err).Error("music failed")
		os.Exit(1)
	}
}
