package anomaly

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"
)

// NeutralScore is returned whenever the model cannot produce a real
// score: untrained state, malformed input, or an internal failure.
const NeutralScore = 0.5

// sigmoidSteepness shapes the confidence curve around the decision
// offset. Raw scores slightly past the offset map well above 0.5.
const sigmoidSteepness = 10.0

// Config holds the model's tunables.
type Config struct {
	Trees         int
	SampleSize    int
	Contamination float64
	MinSamples    int
	RandomSeed    int64
}

// DefaultModelConfig returns the stock model configuration.
func DefaultModelConfig() Config {
	return Config{
		Trees:         100,
		SampleSize:    256,
		Contamination: 0.1,
		MinSamples:    10,
		RandomSeed:    42,
	}
}

// Status reports the model's training state.
type Status struct {
	Trained   bool      `json:"isTrained"`
	ModelType string    `json:"modelType"`
	Samples   int       `json:"trainingSamples"`
	TrainedAt time.Time `json:"trainedAt,omitzero"`
}

// Model holds the process-wide anomaly detector. All state transitions
// go through the mutex; readers never observe a half-trained forest.
type Model struct {
	mu        sync.RWMutex
	forest    *Forest
	offset    float64
	trained   bool
	samples   int
	trainedAt time.Time
	cfg       Config
}

// NewModel creates an untrained model.
func NewModel(cfg Config) *Model {
	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 256
	}
	if cfg.Contamination <= 0 || cfg.Contamination >= 1 {
		cfg.Contamination = 0.1
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 10
	}
	return &Model{cfg: cfg}
}

// Fit retrains the model from scratch on the given feature vectors.
// Returns false with no error when there is not enough data; existing
// trained state is left untouched in that case.
func (m *Model) Fit(data [][]float64) (bool, error) {
	if len(data) < m.cfg.MinSamples {
		return false, nil
	}

	forest := NewForest(m.cfg.Trees, m.cfg.SampleSize, m.cfg.RandomSeed)
	if err := forest.Fit(data); err != nil {
		return false, err
	}

	// Place the decision offset at the (1 - contamination) quantile of
	// the training scores, so roughly the contamination fraction of the
	// training set lands above it.
	scores := make([]float64, len(data))
	for i, row := range data {
		s, err := forest.Score(row)
		if err != nil {
			return false, err
		}
		scores[i] = s
	}
	sort.Float64s(scores)
	idx := int(float64(len(scores)) * (1 - m.cfg.Contamination))
	if idx >= len(scores) {
		idx = len(scores) - 1
	}
	offset := scores[idx]

	m.mu.Lock()
	m.forest = forest
	m.offset = offset
	m.trained = true
	m.samples = len(data)
	m.trainedAt = time.Now().UTC()
	m.mu.Unlock()

	return true, nil
}

// Score maps a feature vector to a fraud confidence in [0, 1].
// An untrained model, a malformed vector, or any internal failure
// yields NeutralScore; scoring never fails hard.
func (m *Model) Score(features []float64) (confidence float64) {
	confidence = NeutralScore

	defer func() {
		if r := recover(); r != nil {
			slog.Error("anomaly scoring panicked", "recover", r)
			confidence = NeutralScore
		}
	}()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained || len(features) != FeatureCount {
		return NeutralScore
	}

	raw, err := m.forest.Score(features)
	if err != nil {
		slog.Warn("anomaly scoring degraded", "error", err)
		return NeutralScore
	}

	return 1 / (1 + math.Exp(-sigmoidSteepness*(raw-m.offset)))
}

// Trained reports whether the model has been fitted.
func (m *Model) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trained
}

// Status returns the model's training state.
func (m *Model) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		Trained:   m.trained,
		ModelType: "isolation-forest",
		Samples:   m.samples,
		TrainedAt: m.trainedAt,
	}
}
