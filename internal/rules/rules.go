// Package rules implements the built-in fraud screening rules and the
// CEL-based custom rule engine.
package rules

import (
	"context"
	"fmt"

	"github.com/opensource-welfare/kestrel/internal/domain"
)

// Fixed confidences of the built-in rules.
const (
	ConfidenceDuplicateIdentity    = 0.95
	ConfidenceDuplicateAddress     = 0.75
	ConfidenceAbnormalFrequency    = 0.85
	ConfidenceMultipleEntitlements = 0.90
	ConfidenceIncomeMismatch       = 0.70
)

// Store is the subset of the repository the built-in rules read from.
type Store interface {
	CountByNationalID(ctx context.Context, nationalID string, excludeID string) (int, error)
	CountByAddress(ctx context.Context, address string) (int, error)
	CountActiveCards(ctx context.Context, subjectID string) (int, error)
}

// FrequencyGetter returns a subject's distribution count over the
// trailing window in days.
type FrequencyGetter func(ctx context.Context, subjectID string, windowDays int) (int64, error)

// Rule checks one fraud pattern against a subject.
type Rule interface {
	Type() domain.FraudType
	Evaluate(ctx context.Context, subject *domain.Subject) (*domain.Finding, error)
}

// DuplicateIdentityRule fires when another subject is registered under
// the same national ID.
type DuplicateIdentityRule struct {
	store Store
}

func (r *DuplicateIdentityRule) Type() domain.FraudType { return domain.FraudDuplicateIdentity }

func (r *DuplicateIdentityRule) Evaluate(ctx context.Context, subject *domain.Subject) (*domain.Finding, error) {
	count, err := r.store.CountByNationalID(ctx, subject.NationalID, subject.ID)
	if err != nil {
		return nil, fmt.Errorf("duplicate identity lookup: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	return &domain.Finding{
		FraudType:  domain.FraudDuplicateIdentity,
		Confidence: ConfidenceDuplicateIdentity,
		Message:    fmt.Sprintf("national ID registered to %d other subject(s)", count),
		Details:    map[string]any{"duplicateCount": count},
	}, nil
}

// DuplicateAddressRule fires when an address is shared by too many
// subjects. Unlike the identity rule, the count includes the subject
// being screened.
type DuplicateAddressRule struct {
	store     Store
	threshold int
}

func (r *DuplicateAddressRule) Type() domain.FraudType { return domain.FraudDuplicateAddress }

func (r *DuplicateAddressRule) Evaluate(ctx context.Context, subject *domain.Subject) (*domain.Finding, error) {
	total, err := r.store.CountByAddress(ctx, subject.Address)
	if err != nil {
		return nil, fmt.Errorf("duplicate address lookup: %w", err)
	}
	if total < r.threshold {
		return nil, nil
	}

	return &domain.Finding{
		FraudType:  domain.FraudDuplicateAddress,
		Confidence: ConfidenceDuplicateAddress,
		Message:    fmt.Sprintf("address shared by %d subjects", total),
		Details:    map[string]any{"householdCount": total},
	}, nil
}

// AbnormalFrequencyRule fires when a subject draws distributions more
// often than the configured threshold over the trailing window.
type AbnormalFrequencyRule struct {
	frequency  FrequencyGetter
	threshold  int
	windowDays int
}

func (r *AbnormalFrequencyRule) Type() domain.FraudType { return domain.FraudAbnormalFrequency }

func (r *AbnormalFrequencyRule) Evaluate(ctx context.Context, subject *domain.Subject) (*domain.Finding, error) {
	count, err := r.frequency(ctx, subject.ID, r.windowDays)
	if err != nil {
		return nil, fmt.Errorf("frequency lookup: %w", err)
	}
	if count <= int64(r.threshold) {
		return nil, nil
	}

	return &domain.Finding{
		FraudType:  domain.FraudAbnormalFrequency,
		Confidence: ConfidenceAbnormalFrequency,
		Message:    fmt.Sprintf("%d distributions in the last %d days", count, r.windowDays),
		Details: map[string]any{
			"transactionCount": count,
			"windowDays":       r.windowDays,
		},
	}, nil
}

// MultipleEntitlementsRule fires when a subject holds more than one
// active entitlement card.
type MultipleEntitlementsRule struct {
	store Store
}

func (r *MultipleEntitlementsRule) Type() domain.FraudType { return domain.FraudMultipleEntitlements }

func (r *MultipleEntitlementsRule) Evaluate(ctx context.Context, subject *domain.Subject) (*domain.Finding, error) {
	count, err := r.store.CountActiveCards(ctx, subject.ID)
	if err != nil {
		return nil, fmt.Errorf("active card lookup: %w", err)
	}
	if count <= 1 {
		return nil, nil
	}

	return &domain.Finding{
		FraudType:  domain.FraudMultipleEntitlements,
		Confidence: ConfidenceMultipleEntitlements,
		Message:    fmt.Sprintf("subject holds %d active cards", count),
		Details:    map[string]any{"activeCards": count},
	}, nil
}

// IncomeMismatchRule fires when a below-poverty-line card holder
// declares income above the cutoff.
type IncomeMismatchRule struct {
	cutoff float64
}

func (r *IncomeMismatchRule) Type() domain.FraudType { return domain.FraudIncomeMismatch }

func (r *IncomeMismatchRule) Evaluate(ctx context.Context, subject *domain.Subject) (*domain.Finding, error) {
	if subject.CardType != domain.CardTypeBPL || subject.DeclaredIncome <= r.cutoff {
		return nil, nil
	}

	return &domain.Finding{
		FraudType:  domain.FraudIncomeMismatch,
		Confidence: ConfidenceIncomeMismatch,
		Message:    fmt.Sprintf("BPL card with declared income %.0f", subject.DeclaredIncome),
		Details: map[string]any{
			"declaredIncome": subject.DeclaredIncome,
			"cardType":       subject.CardType,
		},
	}, nil
}
