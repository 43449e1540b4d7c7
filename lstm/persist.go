package lstm

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// networkData is the gob form of a Network: every layer with its kind,
// hyper-parameters and flattened weights.
type networkData struct {
	SeqLen   int
	Features int
	Vocab    int
	Layers   []layerData
}

type layerData struct {
	Kind            string // "lstm", "dense" or "dropout"
	In, Out         int
	ReturnSequences bool
	Rate            float64

	// one entry per param, in Params order
	Rows, Cols []int
	Data       [][]float64
}

func flatten(ps []*mat.Dense) (rows, cols []int, data [][]float64) {
	for _, p := range ps {
		r, c := p.Dims()
		rows = append(rows, r)
		cols = append(cols, c)
		data = append(data, append([]float64(nil), mat.DenseCopyOf(p).RawMatrix().Data...))
	}
	return rows, cols, data
}

// SaveNetwork writes net to filename. The bytes go to a temp file in the same
// directory which is then renamed into place.
func SaveNetwork(net *Network, filename string) error {
	data := networkData{SeqLen: net.SeqLen, Features: net.Features, Vocab: net.Vocab}
	for _, l := range net.Layers {
		var ld layerData
		switch l := l.(type) {
		case *LSTM:
			ld = layerData{Kind: "lstm", In: l.In, Out: l.Hidden, ReturnSequences: l.ReturnSequences}
		case *Dense:
			ld = layerData{Kind: "dense", In: l.In, Out: l.Out}
		case *Dropout:
			ld = layerData{Kind: "dropout", Rate: l.Rate}
		default:
			return fmt.Errorf("SaveNetwork: unsupported layer %T", l)
		}
		ld.Rows, ld.Cols, ld.Data = flatten(l.Params())
		data.Layers = append(data.Layers, ld)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return err
	}
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filename)
}

// LoadNetwork rebuilds a Network saved by SaveNetwork.
func LoadNetwork(filename string) (*Network, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var data networkData
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&data); err != nil {
		return nil, err
	}

	net := &Network{SeqLen: data.SeqLen, Features: data.Features, Vocab: data.Vocab}
	for i, ld := range data.Layers {
		var l Layer
		switch ld.Kind {
		case "lstm":
			l = &LSTM{In: ld.In, Hidden: ld.Out, ReturnSequences: ld.ReturnSequences}
		case "dense":
			l = &Dense{In: ld.In, Out: ld.Out}
		case "dropout":
			l = &Dropout{Rate: ld.Rate}
		default:
			return nil, fmt.Errorf("LoadNetwork: layer %d has unknown kind %q", i, ld.Kind)
		}
		if len(ld.Rows) != len(ld.Data) || len(ld.Cols) != len(ld.Data) {
			return nil, fmt.Errorf("LoadNetwork: layer %d has inconsistent param shapes", i)
		}
		ps := make([]*mat.Dense, len(ld.Data))
		for j := range ld.Data {
			if len(ld.Data[j]) != ld.Rows[j]*ld.Cols[j] {
				return nil, fmt.Errorf("LoadNetwork: layer %d param %d has %d values for (%d x %d)",
					i, j, len(ld.Data[j]), ld.Rows[j], ld.Cols[j])
			}
			ps[j] = mat.NewDense(ld.Rows[j], ld.Cols[j], ld.Data[j])
		}
		switch l := l.(type) {
		case *LSTM:
			if len(ps) != 3 {
				return nil, fmt.Errorf("LoadNetwork: lstm layer %d has %d params", i, len(ps))
			}
			l.Wx, l.Wh, l.B = ps[0], ps[1], ps[2]
		case *Dense:
			if len(ps) != 2 {
				return nil, fmt.Errorf("LoadNetwork: dense layer %d has %d params", i, len(ps))
			}
			l.W, l.B = ps[0], ps[1]
		}
		net.Layers = append(net.Layers, l)
	}
	return net, nil
}
