package params

import "runtime"

// Vocabulary maps symbols to dense integer ranks and back.
type Vocabulary struct {
	TokenToID map[string]int
	IDToToken []string
}

// Size is |V|.
func (v Vocabulary) Size() int {
	return len(v.IDToToken)
}

type TrainingConfig struct {
	// Data preparation
	InputDir       string // directory scanned for *.mid
	NotesPath      string // serialized symbol corpus
	VocabPath      string // vocabulary export (json)
	SeqLen         int    // window length fed to the network
	CorpusFraction int    // only the first len/CorpusFraction symbols are windowed

	// Model shape
	HiddenWidth int     // LSTM width; 0 = corpus length
	Dropout     float64 // rate for every dropout layer

	// Optimizer
	Optimizer    string  // "rmsprop" or "adam"
	LearningRate float64
	RMSRho       float64 // default 0.9
	RMSEps       float64 // default 1e-7
	AdamBeta1    float64 // default 0.9
	AdamBeta2    float64 // default 0.999
	AdamEps      float64 // default 1e-7
	WeightDecay  float64 // AdamW-style; 0 disables
	GradClip     float64 // <=0 disables

	// Training loop
	Epochs    int
	BatchSize int
	Workers   int    // gradient workers per batch; 1 trains fully serially, the default uses all cores
	Seed      uint64 // weight init + dropout masks

	// Outputs
	CheckpointDir     string
	CheckpointPattern string // fmt pattern: epoch (1-based), loss
	KeepCheckpoints   int    // 0 keeps every improving snapshot
	LossLogPath       string
}

var Config = TrainingConfig{
	InputDir:       "multiTrack",
	NotesPath:      "data/notes",
	VocabPath:      "data/vocab.json",
	SeqLen:         50,
	CorpusFraction: 10,

	HiddenWidth: 0,
	Dropout:     0.3,

	Optimizer:    "rmsprop",
	LearningRate: 0.001,
	RMSRho:       0.9,
	RMSEps:       1e-7,
	AdamBeta1:    0.9,
	AdamBeta2:    0.999,
	AdamEps:      1e-7,
	WeightDecay:  0,
	GradClip:     0,

	Epochs:    200,
	BatchSize: 128 * 6,
	Workers:   runtime.NumCPU(),
	Seed:      1,

	CheckpointDir:     ".",
	CheckpointPattern: "weights-improvement-%02d-%.4f-bigger.gob",
	KeepCheckpoints:   0,
	LossLogPath:       "CSV-DATEI.csv",
}
