package IO

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2/smf"
)

var (
	ErrNoMIDIFiles = errors.New("no *.mid files found")
	ErrCorruptMIDI = errors.New("unreadable MIDI file")
)

// SkippedFile is a file the scan could not decode.
type SkippedFile struct {
	Path string
	Err  error
}

// ScanReport summarises one ScanCorpus run.
type ScanReport struct {
	Files   []string // parsed, in visit order
	Flat    int      // files that fell back to a flat merge
	Skipped []SkippedFile
	Symbols int
}

// ParseFile extracts the symbols of one MIDI file.
func ParseFile(path string) ([]string, Partition, error) {
	s, err := smf.ReadFile(path)
	if err != nil {
		return nil, Partition{}, fmt.Errorf("%w: %s: %v", ErrCorruptMIDI, path, err)
	}
	p := PartitionByInstrument(s)
	return p.Symbols(), p, nil
}

// ScanCorpus reads every *.mid in dir (lexical order), concatenates their
// symbols and persists the result to notesPath. Files that fail to decode are
// logged, recorded in the report and skipped.
func ScanCorpus(ctx context.Context, dir, notesPath string) (Corpus, ScanReport, error) {
	logger := log.WithFields(log.Fields{
		"function": "ScanCorpus",
		"dir":      dir,
	})
	var report ScanReport

	info, err := os.Stat(dir)
	if err != nil {
		return Corpus{}, report, fmt.Errorf("scan %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Corpus{}, report, fmt.Errorf("scan %s: not a directory", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.mid"))
	if err != nil {
		return Corpus{}, report, err
	}
	if len(files) == 0 {
		return Corpus{}, report, fmt.Errorf("%w in %s", ErrNoMIDIFiles, dir)
	}

	var notes []string
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return Corpus{}, report, err
		}
		logger.WithField("file", file).Info("Parsing")
		symbols, p, err := ParseFile(file)
		if err != nil {
			logger.WithField("file", file).WithError(err).Warn("skipping file")
			report.Skipped = append(report.Skipped, SkippedFile{Path: file, Err: err})
			continue
		}
		if p.Mode == PartitionFlat {
			report.Flat++
		}
		report.Files = append(report.Files, file)
		notes = append(notes, symbols...)
	}

	report.Symbols = len(notes)
	if len(notes) == 0 {
		return Corpus{}, report, fmt.Errorf("%w: %d files parsed, %d skipped",
			ErrEmptyCorpus, len(report.Files), len(report.Skipped))
	}

	corpus := Corpus{notes: notes}
	if notesPath != "" {
		if err := SaveCorpus(corpus, notesPath); err != nil {
			return Corpus{}, report, err
		}
	}
	logger.WithFields(log.Fields{
		"symbols": report.Symbols,
		"files":   len(report.Files),
		"skipped": len(report.Skipped),
	}).Info("finished getting notes")
	return corpus, report, nil
}
