package IO

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/Sterniko/music/params"
)

var ErrUnknownSymbol = errors.New("symbol not in vocabulary")

// BuildVocabulary ranks the distinct symbols of c in sorted order.
func BuildVocabulary(c Corpus) params.Vocabulary {
	seen := make(map[string]struct{}, len(c.notes))
	var id2tok []string
	for _, n := range c.notes {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		id2tok = append(id2tok, n)
	}
	slices.Sort(id2tok)

	tok2id := make(map[string]int, len(id2tok))
	for i, tok := range id2tok {
		tok2id[tok] = i
	}
	return params.Vocabulary{TokenToID: tok2id, IDToToken: id2tok}
}

func VocabLookup(v params.Vocabulary, tok string) (int, error) {
	if id, ok := v.TokenToID[tok]; ok {
		return id, nil
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownSymbol, tok)
}

// ExportVocabJSON writes TokenToID and IDToToken to path.
func ExportVocabJSON(v params.Vocabulary, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	data := map[string]any{
		"TokenToID": v.TokenToID,
		"IDToToken": v.IDToToken,
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func ImportVocabJSON(path string) (params.Vocabulary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return params.Vocabulary{}, err
	}
	var v params.Vocabulary
	if err := json.Unmarshal(raw, &v); err != nil {
		return params.Vocabulary{}, fmt.Errorf("import vocab %s: %w", path, err)
	}
	if len(v.TokenToID) != len(v.IDToToken) {
		return params.Vocabulary{}, fmt.Errorf("import vocab %s: %d ids but %d tokens", path, len(v.TokenToID), len(v.IDToToken))
	}
	return v, nil
}
