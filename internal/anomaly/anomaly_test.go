package anomaly

import (
	"math/rand"
	"testing"
	"time"

	"github.com/opensource-welfare/kestrel/internal/domain"
)

func TestExtract(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

	t.Run("Features", func(t *testing.T) {
		tx := &domain.Transaction{
			ID: "tx-001",
			Items: []domain.LineItem{
				{Name: "rice", Quantity: 5, Price: 3},
				{Name: "wheat", Quantity: 10, Price: 2},
			},
			TotalAmount: 35,
			Timestamp:   ts,
		}

		features, err := Extract(tx)
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if len(features) != FeatureCount {
			t.Fatalf("expected %d features, got %d", FeatureCount, len(features))
		}
		if features[0] != 2 {
			t.Errorf("expected item count 2, got %.0f", features[0])
		}
		if features[1] != 35 {
			t.Errorf("expected total 35, got %.2f", features[1])
		}
		if features[2] != 15 {
			t.Errorf("expected hour 15, got %.0f", features[2])
		}
	})

	t.Run("ZeroTimestamp", func(t *testing.T) {
		tx := &domain.Transaction{ID: "tx-002", TotalAmount: 10}
		if _, err := Extract(tx); err == nil {
			t.Error("expected error for zero timestamp")
		}
	})

	t.Run("NilTransaction", func(t *testing.T) {
		if _, err := Extract(nil); err == nil {
			t.Error("expected error for nil transaction")
		}
	})
}

// typicalData generates a cluster of ordinary daytime distributions.
func typicalData(n int) [][]float64 {
	rng := rand.New(rand.NewSource(7))
	data := make([][]float64, n)
	for i := range data {
		data[i] = []float64{
			float64(2 + rng.Intn(3)),      // 2-4 items
			20 + rng.Float64()*30,         // 20-50 total
			float64(9 + rng.Intn(8)),      // 09:00-16:00
		}
	}
	return data
}

func TestForestRanksOutliers(t *testing.T) {
	data := typicalData(200)

	forest := NewForest(100, 128, 42)
	if err := forest.Fit(data); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	inlier, err := forest.Score([]float64{3, 35, 12})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	outlier, err := forest.Score([]float64{45, 9000, 3})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if outlier <= inlier {
		t.Errorf("expected outlier score %.3f > inlier score %.3f", outlier, inlier)
	}
	if inlier < 0 || inlier > 1 || outlier < 0 || outlier > 1 {
		t.Errorf("scores out of range: inlier %.3f outlier %.3f", inlier, outlier)
	}
}

func TestForestUnfitted(t *testing.T) {
	forest := NewForest(10, 32, 42)
	if _, err := forest.Score([]float64{1, 2, 3}); err == nil {
		t.Error("expected error scoring an unfitted forest")
	}
}

func TestModel(t *testing.T) {
	t.Run("UntrainedScoresNeutral", func(t *testing.T) {
		m := NewModel(DefaultModelConfig())
		if got := m.Score([]float64{3, 35, 12}); got != NeutralScore {
			t.Errorf("expected neutral score %.1f, got %.3f", NeutralScore, got)
		}
		if m.Trained() {
			t.Error("expected model to report untrained")
		}
	})

	t.Run("InsufficientData", func(t *testing.T) {
		m := NewModel(DefaultModelConfig())
		ok, err := m.Fit(typicalData(5))
		if err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		if ok {
			t.Error("expected training to be refused with 5 samples")
		}
		if m.Trained() {
			t.Error("model must stay untrained after refused fit")
		}
	})

	t.Run("TrainAndScore", func(t *testing.T) {
		m := NewModel(DefaultModelConfig())
		ok, err := m.Fit(typicalData(200))
		if err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		if !ok {
			t.Fatal("expected training to succeed")
		}

		inlier := m.Score([]float64{3, 35, 12})
		outlier := m.Score([]float64{45, 9000, 3})

		if outlier <= inlier {
			t.Errorf("expected outlier confidence %.3f > inlier confidence %.3f", outlier, inlier)
		}
		if outlier < 0 || outlier > 1 || inlier < 0 || inlier > 1 {
			t.Errorf("confidence out of range: inlier %.3f outlier %.3f", inlier, outlier)
		}
	})

	t.Run("MalformedVectorDegrades", func(t *testing.T) {
		m := NewModel(DefaultModelConfig())
		if ok, err := m.Fit(typicalData(50)); err != nil || !ok {
			t.Fatalf("Fit failed: ok=%v err=%v", ok, err)
		}
		if got := m.Score([]float64{1, 2}); got != NeutralScore {
			t.Errorf("expected neutral score for wrong width, got %.3f", got)
		}
		if got := m.Score(nil); got != NeutralScore {
			t.Errorf("expected neutral score for nil vector, got %.3f", got)
		}
	})

	t.Run("Status", func(t *testing.T) {
		m := NewModel(DefaultModelConfig())
		status := m.Status()
		if status.Trained {
			t.Error("expected untrained status")
		}
		if status.ModelType != "isolation-forest" {
			t.Errorf("unexpected model type %q", status.ModelType)
		}

		if ok, err := m.Fit(typicalData(50)); err != nil || !ok {
			t.Fatalf("Fit failed: ok=%v err=%v", ok, err)
		}
		status = m.Status()
		if !status.Trained || status.Samples != 50 {
			t.Errorf("unexpected status after fit: %+v", status)
		}
	})
}
