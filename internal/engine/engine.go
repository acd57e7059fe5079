// Package engine orchestrates fraud detection: subject scans over the
// built-in rule set, transaction scoring through the anomaly model and
// custom rules, and alert creation with deduplication.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-welfare/kestrel/internal/anomaly"
	"github.com/opensource-welfare/kestrel/internal/domain"
	"github.com/opensource-welfare/kestrel/internal/metrics"
	"github.com/opensource-welfare/kestrel/internal/repository"
	"github.com/opensource-welfare/kestrel/internal/rules"
)

// Engine is the detection facade used by the API and worker layers.
type Engine struct {
	repo      domain.Repository
	bus       domain.EventBus
	evaluator *rules.Evaluator
	custom    *rules.CustomEngine
	model     *anomaly.Model
	metrics   metrics.Recorder
	cfg       domain.DetectionConfig
}

// New creates a detection engine. The custom rule engine and the bus
// are optional; everything else is required.
func New(
	repo domain.Repository,
	bus domain.EventBus,
	evaluator *rules.Evaluator,
	custom *rules.CustomEngine,
	model *anomaly.Model,
	rec metrics.Recorder,
	cfg domain.DetectionConfig,
) *Engine {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Engine{
		repo:      repo,
		bus:       bus,
		evaluator: evaluator,
		custom:    custom,
		model:     model,
		metrics:   rec,
		cfg:       cfg,
	}
}

// ScanSubject runs every built-in rule against a subject and persists
// an alert per finding, unless a pending alert of the same fraud type
// already exists for the subject. An unknown subject yields an empty
// result rather than an error.
func (e *Engine) ScanSubject(ctx context.Context, subjectID string) (*domain.ScanResult, error) {
	result := &domain.ScanResult{
		SubjectID: subjectID,
		Findings:  []*domain.Finding{},
		ScannedAt: time.Now().UTC(),
	}

	subject, err := e.repo.GetSubject(ctx, subjectID)
	if errors.Is(err, repository.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	findings, evalErr := e.evaluator.Evaluate(ctx, subject)
	if evalErr != nil {
		// Findings from rules that did evaluate still count.
		slog.Warn("partial rule evaluation failure",
			"subject_id", subjectID,
			"error", evalErr,
		)
	}
	result.Findings = findings
	e.metrics.RecordScan(len(findings))

	for _, f := range findings {
		e.metrics.RecordFinding(string(f.FraudType))

		created, err := e.raiseAlert(ctx, subjectID, f, true)
		if err != nil {
			return nil, err
		}
		if created {
			result.AlertsCreated++
		}
	}

	return result, nil
}

// ScoreTransaction maps a stored transaction to a fraud confidence in
// [0, 1]. A confidence above the alert threshold raises an anomaly
// alert, always, with no deduplication. Custom rules run on the same
// path and raise deduplicated alerts of their own.
func (e *Engine) ScoreTransaction(ctx context.Context, tx *domain.Transaction) (float64, error) {
	start := time.Now()
	defer func() {
		e.metrics.RecordScoringLatency(time.Since(start))
	}()

	confidence := anomaly.NeutralScore

	features, err := anomaly.Extract(tx)
	if err != nil {
		slog.Warn("feature extraction failed, scoring neutral",
			"transaction_id", tx.ID,
			"error", err,
		)
	} else {
		confidence = e.model.Score(features)
	}

	if confidence > e.cfg.AnomalyAlertThreshold {
		finding := &domain.Finding{
			FraudType:  domain.FraudAnomalousPattern,
			Confidence: confidence,
			Message:    "transaction flagged as anomalous by the trained model",
			Details: map[string]any{
				"transactionId": tx.ID,
				"amount":        tx.TotalAmount,
			},
		}
		e.metrics.RecordFinding(string(finding.FraudType))

		if _, err := e.raiseAlert(ctx, tx.SubjectID, finding, false); err != nil {
			return confidence, err
		}
	}

	if e.custom != nil {
		for _, f := range e.custom.Evaluate(ctx, tx) {
			e.metrics.RecordFinding(string(f.FraudType))

			if _, err := e.raiseAlert(ctx, tx.SubjectID, f, true); err != nil {
				return confidence, err
			}
		}
	}

	return confidence, nil
}

// Train refits the anomaly model on the full transaction history.
// Returns false with no error when there are too few samples; the
// current model survives in that case.
func (e *Engine) Train(ctx context.Context) (bool, int, error) {
	txs, err := e.repo.AllTransactions(ctx)
	if err != nil {
		return false, 0, err
	}

	data := make([][]float64, 0, len(txs))
	for _, tx := range txs {
		features, err := anomaly.Extract(tx)
		if err != nil {
			slog.Warn("skipping unscorable transaction in training set",
				"transaction_id", tx.ID,
				"error", err,
			)
			continue
		}
		data = append(data, features)
	}

	trained, err := e.model.Fit(data)
	if err != nil {
		return false, len(data), err
	}
	if trained {
		e.metrics.RecordModelTraining(len(data))
		slog.Info("anomaly model trained", "samples", len(data))
	}
	return trained, len(data), nil
}

// ModelStatus returns the anomaly model's training state.
func (e *Engine) ModelStatus() anomaly.Status {
	return e.model.Status()
}

// raiseAlert persists an alert for a finding and publishes it on the
// bus. With dedup enabled, an existing pending alert of the same fraud
// type suppresses the new one. Returns whether an alert was created.
func (e *Engine) raiseAlert(ctx context.Context, subjectID string, f *domain.Finding, dedup bool) (bool, error) {
	if dedup {
		existing, err := e.repo.FindPendingAlert(ctx, subjectID, f.FraudType)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return false, err
		}
		if existing != nil {
			e.metrics.RecordAlertSuppressed(string(f.FraudType))
			return false, nil
		}
	}

	alert := &domain.Alert{
		ID:         uuid.New().String(),
		SubjectID:  subjectID,
		FraudType:  f.FraudType,
		Confidence: f.Confidence,
		Message:    f.Message,
		Details:    f.Details,
		Status:     domain.AlertPending,
		CreatedAt:  time.Now().UTC(),
	}

	if err := e.repo.SaveAlert(ctx, alert); err != nil {
		return false, err
	}
	e.metrics.RecordAlertCreated(string(f.FraudType))

	e.publishAlert(ctx, alert)
	return true, nil
}

// publishAlert emits the alert on the event bus. Bus failures are
// logged, never fatal; the alert is already persisted.
func (e *Engine) publishAlert(ctx context.Context, alert *domain.Alert) {
	if e.bus == nil {
		return
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		slog.Error("failed to marshal alert event", "alert_id", alert.ID, "error", err)
		return
	}

	if err := e.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
		slog.Warn("failed to publish alert event",
			"alert_id", alert.ID,
			"topic", domain.TopicAlert,
			"error", err,
		)
	}
}
