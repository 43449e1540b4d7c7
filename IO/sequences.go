package IO

import (
	"errors"
	"fmt"
	"math"

	"github.com/Sterniko/music/params"
	"gonum.org/v1/gonum/mat"
)

var ErrEmptyDataset = errors.New("no training pairs")

// Dataset holds the sliding-window training pairs.
type Dataset struct {
	SeqLen int
	Vocab  params.Vocabulary

	Inputs    *mat.Dense // (pairs x SeqLen), rank / |V|
	Targets   *mat.Dense // (pairs x |V|), one-hot
	TargetIDs []int
}

// PairCount is max(0, n/fraction - seqLen) with integer division.
func PairCount(n, seqLen, fraction int) int {
	if fraction < 1 {
		fraction = 1
	}
	return max(0, n/fraction-seqLen)
}

// PrepareSequences slides a window of seqLen over the first n/fraction symbols
// of c. Pair i takes notes[i:i+seqLen] as input and notes[i+seqLen] as target.
// A corpus too short for one pair returns an empty Dataset and ErrEmptyDataset.
func PrepareSequences(c Corpus, vocab params.Vocabulary, seqLen, fraction int) (*Dataset, error) {
	if seqLen < 1 {
		return nil, fmt.Errorf("prepare sequences: window %d", seqLen)
	}
	V := vocab.Size()
	ds := &Dataset{SeqLen: seqLen, Vocab: vocab}
	pairs := PairCount(c.Len(), seqLen, fraction)
	if pairs == 0 || V == 0 {
		return ds, fmt.Errorf("%w: %d symbols, window %d, fraction 1/%d", ErrEmptyDataset, c.Len(), seqLen, fraction)
	}

	// encode only the prefix the windows touch
	ranks := make([]int, pairs+seqLen)
	for i := range ranks {
		id, err := VocabLookup(vocab, c.notes[i])
		if err != nil {
			return nil, fmt.Errorf("symbol %d: %w", i, err)
		}
		ranks[i] = id
	}

	ds.Inputs = mat.NewDense(pairs, seqLen, nil)
	ds.Targets = mat.NewDense(pairs, V, nil)
	ds.TargetIDs = make([]int, pairs)
	for i := 0; i < pairs; i++ {
		for t := 0; t < seqLen; t++ {
			ds.Inputs.Set(i, t, float64(ranks[i+t])/float64(V))
		}
		target := ranks[i+seqLen]
		ds.Targets.Set(i, target, 1)
		ds.TargetIDs[i] = target
	}
	return ds, nil
}

func (d *Dataset) Len() int { return len(d.TargetIDs) }

// Window recovers the integer ranks of input row i.
func (d *Dataset) Window(i int) []int {
	V := float64(d.Vocab.Size())
	out := make([]int, d.SeqLen)
	for t := range out {
		out[t] = int(math.Round(d.Inputs.At(i, t) * V))
	}
	return out
}

// Batch returns rows [lo, hi) as a view of Inputs and their target ranks.
func (d *Dataset) Batch(lo, hi int) (*mat.Dense, []int) {
	return d.Inputs.Slice(lo, hi, 0, d.SeqLen).(*mat.Dense), d.TargetIDs[lo:hi]
}
