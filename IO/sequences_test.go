package IO

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestBuildVocabularySorted(t *testing.T) {
	v := BuildVocabulary(NewCorpus([]string{"E4", "C4", "0.4.7", "C4"}))
	assert.Equal(t, []string{"0.4.7", "C4", "E4"}, v.IDToToken)
	for i, tok := range v.IDToToken {
		assert.Equal(t, i, v.TokenToID[tok])
	}

	id, err := VocabLookup(v, "E4")
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	_, err = VocabLookup(v, "F4")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestVocabJSONRoundTrip(t *testing.T) {
	v := BuildVocabulary(NewCorpus([]string{"B-3", "C#4", "0.4"}))
	path := filepath.Join(t.TempDir(), "data", "vocab.json")
	require.NoError(t, ExportVocabJSON(v, path))

	got, err := ImportVocabJSON(path)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestPairCount(t *testing.T) {
	tests := []struct{ n, w, fraction, want int }{
		{1000, 50, 10, 50},
		{500, 50, 10, 0},
		{8, 2, 10, 0},
		{8, 2, 1, 6},
		{29, 2, 10, 0},
		{30, 2, 10, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PairCount(tt.n, tt.w, tt.fraction), "%+v", tt)
	}
}

func TestPrepareSequencesTinyCorpus(t *testing.T) {
	c := NewCorpus([]string{"C4", "C4", "E4", "G4", "E4", "C4", "E4", "G4"})
	v := BuildVocabulary(c)
	assert.Equal(t, map[string]int{"C4": 0, "E4": 1, "G4": 2}, v.TokenToID)
	ds, err := PrepareSequences(c, v, 2, 10)
	assert.ErrorIs(t, err, ErrEmptyDataset)
	require.NotNil(t, ds)
	assert.Equal(t, 0, ds.Len())
}

func TestPrepareSequences(t *testing.T) {
	var notes []string
	for i := 0; i < 40; i++ {
		notes = append(notes, fmt.Sprintf("%d", i%7))
	}
	c := NewCorpus(notes)
	v := BuildVocabulary(c)
	const w = 3

	ds, err := PrepareSequences(c, v, w, 1)
	require.NoError(t, err)
	require.Equal(t, 37, ds.Len())

	rows, cols := ds.Targets.Dims()
	assert.Equal(t, 37, rows)
	assert.Equal(t, v.Size(), cols)

	for i := 0; i < ds.Len(); i++ {
		want := make([]int, w)
		for t2 := 0; t2 < w; t2++ {
			want[t2] = v.TokenToID[notes[i+t2]]
		}
		assert.Equal(t, want, ds.Window(i), "window %d", i)

		target := v.TokenToID[notes[i+w]]
		assert.Equal(t, target, ds.TargetIDs[i])
		assert.Equal(t, 1.0, mat.Sum(ds.Targets.RowView(i)))
		assert.Equal(t, 1.0, ds.Targets.At(i, target))
		for t2 := 0; t2 < w; t2++ {
			x := ds.Inputs.At(i, t2)
			assert.True(t, x >= 0 && x < 1)
		}
	}

	x, y := ds.Batch(5, 9)
	r, c2 := x.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, w, c2)
	assert.Equal(t, ds.TargetIDs[5:9], y)
	assert.Equal(t, ds.Inputs.At(6, 1), x.At(1, 1))
}

func TestPrepareSequencesUnknownSymbol(t *testing.T) {
	c := NewCorpus([]string{"C4", "D4", "E4", "F4"})
	v := BuildVocabulary(NewCorpus([]string{"C4", "D4"}))
	_, err := PrepareSequences(c, v, 2, 1)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}
