package engine

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/opensource-welfare/kestrel/internal/anomaly"
	"github.com/opensource-welfare/kestrel/internal/domain"
	"github.com/opensource-welfare/kestrel/internal/repository"
	"github.com/opensource-welfare/kestrel/internal/rules"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "kestrel-engine-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func newTestEngine(t *testing.T, repo domain.Repository) *Engine {
	t.Helper()

	cfg := domain.DefaultDetectionConfig()
	frequency := func(ctx context.Context, subjectID string, windowDays int) (int64, error) {
		return 0, nil
	}
	evaluator := rules.NewEvaluator(repo, frequency, cfg, 5)
	model := anomaly.NewModel(anomaly.DefaultModelConfig())

	return New(repo, nil, evaluator, nil, model, nil, cfg)
}

func saveSubject(t *testing.T, repo domain.Repository, s *domain.Subject) {
	t.Helper()

	now := time.Now().UTC()
	if s.Status == "" {
		s.Status = domain.SubjectActive
	}
	if s.Verification == "" {
		s.Verification = domain.VerificationPending
	}
	s.CreatedAt = now
	s.UpdatedAt = now
	if err := repo.SaveSubject(context.Background(), s); err != nil {
		t.Fatalf("SaveSubject failed: %v", err)
	}
}

func TestScanSubject(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownSubjectYieldsEmptyResult", func(t *testing.T) {
		repo := newTestRepo(t)
		eng := newTestEngine(t, repo)

		result, err := eng.ScanSubject(ctx, "no-such-subject")
		if err != nil {
			t.Fatalf("ScanSubject failed: %v", err)
		}
		if len(result.Findings) != 0 || result.AlertsCreated != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
	})

	t.Run("CleanSubjectNoFindings", func(t *testing.T) {
		repo := newTestRepo(t)
		eng := newTestEngine(t, repo)

		saveSubject(t, repo, &domain.Subject{
			ID:             "sub-clean",
			NationalID:     "NID-9001",
			Name:           "Meena Devi",
			Address:        "4 Temple Street",
			DeclaredIncome: 30000,
			CardType:       domain.CardTypeBPL,
		})

		result, err := eng.ScanSubject(ctx, "sub-clean")
		if err != nil {
			t.Fatalf("ScanSubject failed: %v", err)
		}
		if len(result.Findings) != 0 {
			t.Errorf("expected no findings, got %d", len(result.Findings))
		}
		if result.AlertsCreated != 0 {
			t.Errorf("expected no alerts, got %d", result.AlertsCreated)
		}
	})

	t.Run("DuplicateIdentityCreatesAlert", func(t *testing.T) {
		repo := newTestRepo(t)
		eng := newTestEngine(t, repo)

		saveSubject(t, repo, &domain.Subject{
			ID:         "sub-a",
			NationalID: "NID-DUP",
			Name:       "First Holder",
			Address:    "1 River Lane",
			CardType:   domain.CardTypeAPL,
		})
		saveSubject(t, repo, &domain.Subject{
			ID:         "sub-b",
			NationalID: "NID-DUP",
			Name:       "Second Holder",
			Address:    "2 River Lane",
			CardType:   domain.CardTypeAPL,
		})

		result, err := eng.ScanSubject(ctx, "sub-a")
		if err != nil {
			t.Fatalf("ScanSubject failed: %v", err)
		}

		var found bool
		for _, f := range result.Findings {
			if f.FraudType == domain.FraudDuplicateIdentity {
				found = true
			}
		}
		if !found {
			t.Fatal("expected a duplicate-identity finding")
		}
		if result.AlertsCreated == 0 {
			t.Error("expected at least one alert created")
		}

		alert, err := repo.FindPendingAlert(ctx, "sub-a", domain.FraudDuplicateIdentity)
		if err != nil {
			t.Fatalf("FindPendingAlert failed: %v", err)
		}
		if alert.Status != domain.AlertPending {
			t.Errorf("expected pending alert, got %s", alert.Status)
		}
	})

	t.Run("RepeatScanSuppressesDuplicateAlerts", func(t *testing.T) {
		repo := newTestRepo(t)
		eng := newTestEngine(t, repo)

		saveSubject(t, repo, &domain.Subject{
			ID:         "sub-a",
			NationalID: "NID-DUP",
			Name:       "First Holder",
			Address:    "1 River Lane",
			CardType:   domain.CardTypeAPL,
		})
		saveSubject(t, repo, &domain.Subject{
			ID:         "sub-b",
			NationalID: "NID-DUP",
			Name:       "Second Holder",
			Address:    "2 River Lane",
			CardType:   domain.CardTypeAPL,
		})

		first, err := eng.ScanSubject(ctx, "sub-a")
		if err != nil {
			t.Fatalf("first scan failed: %v", err)
		}
		if first.AlertsCreated != 1 {
			t.Fatalf("expected 1 alert from first scan, got %d", first.AlertsCreated)
		}

		second, err := eng.ScanSubject(ctx, "sub-a")
		if err != nil {
			t.Fatalf("second scan failed: %v", err)
		}
		if len(second.Findings) == 0 {
			t.Error("repeat scan should still report findings")
		}
		if second.AlertsCreated != 0 {
			t.Errorf("expected 0 alerts from repeat scan, got %d", second.AlertsCreated)
		}
	})

	t.Run("ResolvedAlertAllowsNewAlert", func(t *testing.T) {
		repo := newTestRepo(t)
		eng := newTestEngine(t, repo)

		saveSubject(t, repo, &domain.Subject{
			ID:         "sub-a",
			NationalID: "NID-DUP",
			Name:       "First Holder",
			Address:    "1 River Lane",
			CardType:   domain.CardTypeAPL,
		})
		saveSubject(t, repo, &domain.Subject{
			ID:         "sub-b",
			NationalID: "NID-DUP",
			Name:       "Second Holder",
			Address:    "2 River Lane",
			CardType:   domain.CardTypeAPL,
		})

		if _, err := eng.ScanSubject(ctx, "sub-a"); err != nil {
			t.Fatalf("first scan failed: %v", err)
		}

		alert, err := repo.FindPendingAlert(ctx, "sub-a", domain.FraudDuplicateIdentity)
		if err != nil {
			t.Fatalf("FindPendingAlert failed: %v", err)
		}
		if err := repo.UpdateAlertStatus(ctx, alert.ID, domain.AlertDismissed, "admin@example.com"); err != nil {
			t.Fatalf("UpdateAlertStatus failed: %v", err)
		}

		rescan, err := eng.ScanSubject(ctx, "sub-a")
		if err != nil {
			t.Fatalf("rescan failed: %v", err)
		}
		if rescan.AlertsCreated != 1 {
			t.Errorf("expected new alert after resolution, got %d", rescan.AlertsCreated)
		}
	})
}

// trainingTransactions produces a plausible distribution history:
// small baskets, modest totals, daytime collection hours.
func trainingTransactions(subjectID string, n int) []*domain.Transaction {
	txs := make([]*domain.Transaction, n)
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ts := base.AddDate(0, 0, i%28).Add(time.Duration(i%6) * time.Hour)
		txs[i] = &domain.Transaction{
			ID:        fmt.Sprintf("tx-%03d", i),
			SubjectID: subjectID,
			ShopID:    "shop-001",
			Items: []domain.LineItem{
				{Name: "rice", Quantity: 5, Unit: "kg", Price: 15},
				{Name: "wheat", Quantity: 3, Unit: "kg", Price: 10},
			},
			TotalAmount: 25 + float64(i%10),
			Timestamp:   ts,
			CreatedAt:   ts,
		}
	}
	return txs
}

func TestScoreTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("UntrainedScoresNeutral", func(t *testing.T) {
		repo := newTestRepo(t)
		eng := newTestEngine(t, repo)

		tx := trainingTransactions("sub-001", 1)[0]
		conf, err := eng.ScoreTransaction(ctx, tx)
		if err != nil {
			t.Fatalf("ScoreTransaction failed: %v", err)
		}
		if conf != anomaly.NeutralScore {
			t.Errorf("expected neutral score, got %f", conf)
		}

		alerts, err := repo.ListAlerts(ctx, "")
		if err != nil {
			t.Fatalf("ListAlerts failed: %v", err)
		}
		if len(alerts) != 0 {
			t.Errorf("neutral score should not raise alerts, got %d", len(alerts))
		}
	})

	t.Run("ZeroTimestampScoresNeutral", func(t *testing.T) {
		repo := newTestRepo(t)
		eng := newTestEngine(t, repo)

		conf, err := eng.ScoreTransaction(ctx, &domain.Transaction{
			ID:          "tx-bad",
			SubjectID:   "sub-001",
			TotalAmount: 40,
		})
		if err != nil {
			t.Fatalf("ScoreTransaction failed: %v", err)
		}
		if conf != anomaly.NeutralScore {
			t.Errorf("expected neutral score for zero timestamp, got %f", conf)
		}
	})

	t.Run("AnomalousTransactionAlwaysAlerts", func(t *testing.T) {
		repo := newTestRepo(t)
		eng := newTestEngine(t, repo)

		saveSubject(t, repo, &domain.Subject{
			ID:         "sub-001",
			NationalID: "NID-1",
			Name:       "Ravi Kumar",
			Address:    "12 Market Road",
			CardType:   domain.CardTypeBPL,
		})
		for _, tx := range trainingTransactions("sub-001", 60) {
			if err := repo.SaveTransaction(ctx, tx); err != nil {
				t.Fatalf("SaveTransaction failed: %v", err)
			}
		}
		trained, _, err := eng.Train(ctx)
		if err != nil {
			t.Fatalf("Train failed: %v", err)
		}
		if !trained {
			t.Fatal("expected model to train")
		}

		outlier := &domain.Transaction{
			ID:        "tx-outlier",
			SubjectID: "sub-001",
			ShopID:    "shop-001",
			Items: func() []domain.LineItem {
				items := make([]domain.LineItem, 40)
				for i := range items {
					items[i] = domain.LineItem{Name: "rice", Quantity: 10, Unit: "kg", Price: 25}
				}
				return items
			}(),
			TotalAmount: 10000,
			Timestamp:   time.Date(2026, 5, 2, 3, 0, 0, 0, time.UTC),
			CreatedAt:   time.Now().UTC(),
		}

		conf, err := eng.ScoreTransaction(ctx, outlier)
		if err != nil {
			t.Fatalf("ScoreTransaction failed: %v", err)
		}
		if conf <= eng.cfg.AnomalyAlertThreshold {
			t.Fatalf("expected outlier confidence above %f, got %f",
				eng.cfg.AnomalyAlertThreshold, conf)
		}

		// Anomaly alerts are never deduplicated.
		if _, err := eng.ScoreTransaction(ctx, outlier); err != nil {
			t.Fatalf("second ScoreTransaction failed: %v", err)
		}

		alerts, err := repo.ListAlerts(ctx, domain.AlertPending)
		if err != nil {
			t.Fatalf("ListAlerts failed: %v", err)
		}
		var anomalyAlerts int
		for _, a := range alerts {
			if a.FraudType == domain.FraudAnomalousPattern {
				anomalyAlerts++
			}
		}
		if anomalyAlerts != 2 {
			t.Errorf("expected 2 anomaly alerts, got %d", anomalyAlerts)
		}
	})

	t.Run("CustomRuleRaisesDedupedAlert", func(t *testing.T) {
		repo := newTestRepo(t)

		custom, err := rules.NewCustomEngine(5)
		if err != nil {
			t.Fatalf("NewCustomEngine failed: %v", err)
		}
		if err := custom.LoadRule(&domain.RuleConfig{
			ID:         "high-value-basket",
			Name:       "High value basket",
			Expression: "amount > 1000.0",
			Confidence: 0.8,
			Enabled:    true,
		}); err != nil {
			t.Fatalf("LoadRule failed: %v", err)
		}

		cfg := domain.DefaultDetectionConfig()
		frequency := func(ctx context.Context, subjectID string, windowDays int) (int64, error) {
			return 0, nil
		}
		evaluator := rules.NewEvaluator(repo, frequency, cfg, 5)
		model := anomaly.NewModel(anomaly.DefaultModelConfig())
		eng := New(repo, nil, evaluator, custom, model, nil, cfg)

		tx := &domain.Transaction{
			ID:          "tx-big",
			SubjectID:   "sub-001",
			ShopID:      "shop-001",
			Items:       []domain.LineItem{{Name: "rice", Quantity: 100, Unit: "kg", Price: 15}},
			TotalAmount: 1500,
			Timestamp:   time.Now().UTC(),
			CreatedAt:   time.Now().UTC(),
		}

		if _, err := eng.ScoreTransaction(ctx, tx); err != nil {
			t.Fatalf("ScoreTransaction failed: %v", err)
		}

		alert, err := repo.FindPendingAlert(ctx, "sub-001", domain.FraudType("high-value-basket"))
		if err != nil {
			t.Fatalf("expected custom rule alert: %v", err)
		}
		if alert.Confidence != 0.8 {
			t.Errorf("expected confidence 0.8, got %f", alert.Confidence)
		}

		// Same pending fraud type suppresses the repeat.
		if _, err := eng.ScoreTransaction(ctx, tx); err != nil {
			t.Fatalf("second ScoreTransaction failed: %v", err)
		}
		alerts, err := repo.ListAlerts(ctx, domain.AlertPending)
		if err != nil {
			t.Fatalf("ListAlerts failed: %v", err)
		}
		if len(alerts) != 1 {
			t.Errorf("expected 1 alert after dedup, got %d", len(alerts))
		}
	})
}

func TestTrain(t *testing.T) {
	ctx := context.Background()

	t.Run("InsufficientDataDoesNotTrain", func(t *testing.T) {
		repo := newTestRepo(t)
		eng := newTestEngine(t, repo)

		saveSubject(t, repo, &domain.Subject{
			ID:         "sub-001",
			NationalID: "NID-1",
			Name:       "Ravi Kumar",
			Address:    "12 Market Road",
			CardType:   domain.CardTypeBPL,
		})
		for _, tx := range trainingTransactions("sub-001", 5) {
			if err := repo.SaveTransaction(ctx, tx); err != nil {
				t.Fatalf("SaveTransaction failed: %v", err)
			}
		}

		trained, samples, err := eng.Train(ctx)
		if err != nil {
			t.Fatalf("Train failed: %v", err)
		}
		if trained {
			t.Error("expected training to be skipped with too few samples")
		}
		if samples != 5 {
			t.Errorf("expected 5 samples, got %d", samples)
		}
		if eng.ModelStatus().Trained {
			t.Error("model should remain untrained")
		}
	})

	t.Run("TrainsWithEnoughData", func(t *testing.T) {
		repo := newTestRepo(t)
		eng := newTestEngine(t, repo)

		saveSubject(t, repo, &domain.Subject{
			ID:         "sub-001",
			NationalID: "NID-1",
			Name:       "Ravi Kumar",
			Address:    "12 Market Road",
			CardType:   domain.CardTypeBPL,
		})
		for _, tx := range trainingTransactions("sub-001", 30) {
			if err := repo.SaveTransaction(ctx, tx); err != nil {
				t.Fatalf("SaveTransaction failed: %v", err)
			}
		}

		trained, samples, err := eng.Train(ctx)
		if err != nil {
			t.Fatalf("Train failed: %v", err)
		}
		if !trained {
			t.Fatal("expected model to train")
		}
		if samples != 30 {
			t.Errorf("expected 30 samples, got %d", samples)
		}

		status := eng.ModelStatus()
		if !status.Trained || status.Samples != 30 {
			t.Errorf("unexpected model status: %+v", status)
		}
		if status.ModelType != "isolation-forest" {
			t.Errorf("unexpected model type: %s", status.ModelType)
		}
	})
}
