package worker

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/opensource-welfare/kestrel/internal/anomaly"
	"github.com/opensource-welfare/kestrel/internal/bus"
	"github.com/opensource-welfare/kestrel/internal/domain"
	"github.com/opensource-welfare/kestrel/internal/engine"
	"github.com/opensource-welfare/kestrel/internal/repository"
	"github.com/opensource-welfare/kestrel/internal/rules"
)

func newTestWorker(t *testing.T) (*Worker, domain.Repository, domain.EventBus) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "kestrel-worker-test-*.db")
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

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	cfg := domain.DefaultDetectionConfig()
	frequency := func(ctx context.Context, subjectID string, windowDays int) (int64, error) {
		return 0, nil
	}
	evaluator := rules.NewEvaluator(repo, frequency, cfg, 5)
	model := anomaly.NewModel(anomaly.DefaultModelConfig())
	eng := engine.New(repo, eventBus, evaluator, nil, model, nil, cfg)

	w := NewWorker(eventBus, eng)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { w.Stop() })

	return w, repo, eventBus
}

func saveSubject(t *testing.T, repo domain.Repository, id, nationalID string) {
	t.Helper()

	now := time.Now().UTC()
	err := repo.SaveSubject(context.Background(), &domain.Subject{
		ID:           id,
		NationalID:   nationalID,
		Name:         "Subject " + id,
		Address:      "Address " + id,
		CardType:     domain.CardTypeAPL,
		Status:       domain.SubjectActive,
		Verification: domain.VerificationPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("SaveSubject failed: %v", err)
	}
}

// waitForAlert polls until an alert appears or the deadline passes.
func waitForAlert(t *testing.T, repo domain.Repository, subjectID string, fraudType domain.FraudType) *domain.Alert {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		alert, err := repo.FindPendingAlert(context.Background(), subjectID, fraudType)
		if err == nil {
			return alert
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no %s alert for %s within deadline", fraudType, subjectID)
	return nil
}

func TestWorker(t *testing.T) {
	ctx := context.Background()

	t.Run("ProcessesQueuedScan", func(t *testing.T) {
		_, repo, eventBus := newTestWorker(t)

		// Shared national ID makes both subjects suspicious.
		saveSubject(t, repo, "sub-a", "NID-SHARED")
		saveSubject(t, repo, "sub-b", "NID-SHARED")

		payload, _ := json.Marshal(domain.ScanRequest{SubjectID: "sub-a"})
		if err := eventBus.Publish(ctx, domain.TopicScanRequest, payload); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		alert := waitForAlert(t, repo, "sub-a", domain.FraudDuplicateIdentity)
		if alert.Confidence != 0.95 {
			t.Errorf("expected confidence 0.95, got %f", alert.Confidence)
		}
	})

	t.Run("IgnoresMalformedPayload", func(t *testing.T) {
		_, repo, eventBus := newTestWorker(t)

		if err := eventBus.Publish(ctx, domain.TopicScanRequest, []byte("not-json")); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		time.Sleep(100 * time.Millisecond)

		alerts, err := repo.ListAlerts(ctx, "")
		if err != nil {
			t.Fatalf("ListAlerts failed: %v", err)
		}
		if len(alerts) != 0 {
			t.Errorf("malformed payload should not create alerts, got %d", len(alerts))
		}
	})

	t.Run("UnknownSubjectIsNoop", func(t *testing.T) {
		_, repo, eventBus := newTestWorker(t)

		payload, _ := json.Marshal(domain.ScanRequest{SubjectID: "no-such-subject"})
		if err := eventBus.Publish(ctx, domain.TopicScanRequest, payload); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		time.Sleep(100 * time.Millisecond)

		alerts, err := repo.ListAlerts(ctx, "")
		if err != nil {
			t.Fatalf("ListAlerts failed: %v", err)
		}
		if len(alerts) != 0 {
			t.Errorf("unknown subject should not create alerts, got %d", len(alerts))
		}
	})

	t.Run("StatsReportSubscription", func(t *testing.T) {
		w, _, _ := newTestWorker(t)

		stats := w.GetStats()
		if stats.SubscriptionCount != 1 {
			t.Errorf("expected 1 subscription, got %d", stats.SubscriptionCount)
		}
		if len(stats.Topics) != 1 || stats.Topics[0] != domain.TopicScanRequest {
			t.Errorf("unexpected topics: %v", stats.Topics)
		}
	})
}
