package IO

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
)

var ErrEmptyCorpus = errors.New("corpus has no symbols")

// Corpus is the ordered symbol list extracted from a MIDI directory. It is
// never modified after construction.
type Corpus struct {
	notes []string
}

func NewCorpus(notes []string) Corpus {
	return Corpus{notes: append([]string(nil), notes...)}
}

func (c Corpus) Len() int { return len(c.notes) }

func (c Corpus) At(i int) string { return c.notes[i] }

// Notes returns a copy of the symbols.
func (c Corpus) Notes() []string {
	return append([]string(nil), c.notes...)
}

// SaveCorpus writes the symbols to path as a gob-encoded []string inside a
// snappy stream.
func SaveCorpus(c Corpus, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save corpus: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save corpus: %w", err)
	}
	zw := snappy.NewBufferedWriter(f)
	if err := gob.NewEncoder(zw).Encode(c.notes); err != nil {
		f.Close()
		return fmt.Errorf("save corpus: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("save corpus: %w", err)
	}
	return f.Close()
}

// LoadCorpus reads a file written by SaveCorpus.
func LoadCorpus(path string) (Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return Corpus{}, fmt.Errorf("load corpus: %w", err)
	}
	defer f.Close()

	var notes []string
	if err := gob.NewDecoder(snappy.NewReader(bufio.NewReader(f))).Decode(&notes); err != nil {
		return Corpus{}, fmt.Errorf("load corpus %s: %w", path, err)
	}
	return Corpus{notes: notes}, nil
}
