package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/opensource-welfare/kestrel/internal/domain"
)

// fakeStore returns canned counts for rule evaluation.
type fakeStore struct {
	nationalIDCount int
	addressCount    int
	activeCards     int
	err             error
}

func (f *fakeStore) CountByNationalID(ctx context.Context, nationalID, excludeID string) (int, error) {
	return f.nationalIDCount, f.err
}

func (f *fakeStore) CountByAddress(ctx context.Context, address string) (int, error) {
	return f.addressCount, f.err
}

func (f *fakeStore) CountActiveCards(ctx context.Context, subjectID string) (int, error) {
	return f.activeCards, f.err
}

func staticFrequency(count int64, err error) FrequencyGetter {
	return func(ctx context.Context, subjectID string, windowDays int) (int64, error) {
		return count, err
	}
}

func testSubject() *domain.Subject {
	return &domain.Subject{
		ID:             "sub-001",
		NationalID:     "NID-1001",
		Address:        "12 Market Road",
		CardType:       domain.CardTypeBPL,
		DeclaredIncome: 45000,
		Status:         domain.SubjectActive,
	}
}

func TestDuplicateIdentityRule(t *testing.T) {
	ctx := context.Background()

	t.Run("FiresOnAnyOtherHolder", func(t *testing.T) {
		rule := &DuplicateIdentityRule{store: &fakeStore{nationalIDCount: 1}}
		f, err := rule.Evaluate(ctx, testSubject())
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if f == nil {
			t.Fatal("expected finding")
		}
		if f.Confidence != ConfidenceDuplicateIdentity {
			t.Errorf("expected confidence %.2f, got %.2f", ConfidenceDuplicateIdentity, f.Confidence)
		}
		if f.Details["duplicateCount"] != 1 {
			t.Errorf("expected duplicateCount 1, got %v", f.Details["duplicateCount"])
		}
	})

	t.Run("SilentWhenUnique", func(t *testing.T) {
		rule := &DuplicateIdentityRule{store: &fakeStore{nationalIDCount: 0}}
		f, err := rule.Evaluate(ctx, testSubject())
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if f != nil {
			t.Error("expected no finding for unique national ID")
		}
	})

	t.Run("StoreErrorPropagates", func(t *testing.T) {
		rule := &DuplicateIdentityRule{store: &fakeStore{err: errors.New("db down")}}
		if _, err := rule.Evaluate(ctx, testSubject()); err == nil {
			t.Error("expected store error to propagate")
		}
	})
}

func TestDuplicateAddressRule(t *testing.T) {
	ctx := context.Background()

	// The address count includes the subject itself, so two residents
	// stay silent while three fire.
	t.Run("SilentAtTwoResidents", func(t *testing.T) {
		rule := &DuplicateAddressRule{store: &fakeStore{addressCount: 2}, threshold: 3}
		f, err := rule.Evaluate(ctx, testSubject())
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if f != nil {
			t.Error("expected no finding at 2 residents")
		}
	})

	t.Run("FiresAtThreeResidents", func(t *testing.T) {
		rule := &DuplicateAddressRule{store: &fakeStore{addressCount: 3}, threshold: 3}
		f, err := rule.Evaluate(ctx, testSubject())
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if f == nil {
			t.Fatal("expected finding at 3 residents")
		}
		if f.Confidence != ConfidenceDuplicateAddress {
			t.Errorf("expected confidence %.2f, got %.2f", ConfidenceDuplicateAddress, f.Confidence)
		}
	})
}

func TestAbnormalFrequencyRule(t *testing.T) {
	ctx := context.Background()

	t.Run("SilentAtThreshold", func(t *testing.T) {
		rule := &AbnormalFrequencyRule{frequency: staticFrequency(40, nil), threshold: 40, windowDays: 30}
		f, err := rule.Evaluate(ctx, testSubject())
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if f != nil {
			t.Error("expected no finding at exactly 40 transactions")
		}
	})

	t.Run("FiresAboveThreshold", func(t *testing.T) {
		rule := &AbnormalFrequencyRule{frequency: staticFrequency(41, nil), threshold: 40, windowDays: 30}
		f, err := rule.Evaluate(ctx, testSubject())
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if f == nil {
			t.Fatal("expected finding at 41 transactions")
		}
		if f.Confidence != ConfidenceAbnormalFrequency {
			t.Errorf("expected confidence %.2f, got %.2f", ConfidenceAbnormalFrequency, f.Confidence)
		}
	})
}

func TestMultipleEntitlementsRule(t *testing.T) {
	ctx := context.Background()

	t.Run("SilentWithOneCard", func(t *testing.T) {
		rule := &MultipleEntitlementsRule{store: &fakeStore{activeCards: 1}}
		f, err := rule.Evaluate(ctx, testSubject())
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if f != nil {
			t.Error("expected no finding with one active card")
		}
	})

	t.Run("FiresWithTwoCards", func(t *testing.T) {
		rule := &MultipleEntitlementsRule{store: &fakeStore{activeCards: 2}}
		f, err := rule.Evaluate(ctx, testSubject())
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if f == nil {
			t.Fatal("expected finding with two active cards")
		}
		if f.Confidence != ConfidenceMultipleEntitlements {
			t.Errorf("expected confidence %.2f, got %.2f", ConfidenceMultipleEntitlements, f.Confidence)
		}
	})
}

func TestIncomeMismatchRule(t *testing.T) {
	ctx := context.Background()
	rule := &IncomeMismatchRule{cutoff: 100000}

	t.Run("FiresForHighIncomeBPL", func(t *testing.T) {
		s := testSubject()
		s.DeclaredIncome = 150000
		f, err := rule.Evaluate(ctx, s)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if f == nil {
			t.Fatal("expected finding for BPL with high income")
		}
		if f.Confidence != ConfidenceIncomeMismatch {
			t.Errorf("expected confidence %.2f, got %.2f", ConfidenceIncomeMismatch, f.Confidence)
		}
	})

	t.Run("SilentForAPL", func(t *testing.T) {
		s := testSubject()
		s.CardType = domain.CardTypeAPL
		s.DeclaredIncome = 150000
		f, err := rule.Evaluate(ctx, s)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if f != nil {
			t.Error("expected no finding for APL card")
		}
	})

	t.Run("SilentAtCutoff", func(t *testing.T) {
		s := testSubject()
		s.DeclaredIncome = 100000
		f, err := rule.Evaluate(ctx, s)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if f != nil {
			t.Error("expected no finding at exactly the cutoff")
		}
	})
}

func TestEvaluator(t *testing.T) {
	ctx := context.Background()
	cfg := domain.DefaultDetectionConfig()

	t.Run("AllRulesFire", func(t *testing.T) {
		store := &fakeStore{nationalIDCount: 2, addressCount: 4, activeCards: 3}
		ev := NewEvaluator(store, staticFrequency(50, nil), cfg, 4)

		s := testSubject()
		s.DeclaredIncome = 200000

		findings, err := ev.Evaluate(ctx, s)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if len(findings) != 5 {
			t.Errorf("expected all 5 rules to fire, got %d findings", len(findings))
		}

		seen := make(map[domain.FraudType]bool)
		for _, f := range findings {
			seen[f.FraudType] = true
		}
		for _, ft := range []domain.FraudType{
			domain.FraudDuplicateIdentity,
			domain.FraudDuplicateAddress,
			domain.FraudAbnormalFrequency,
			domain.FraudMultipleEntitlements,
			domain.FraudIncomeMismatch,
		} {
			if !seen[ft] {
				t.Errorf("missing finding for %s", ft)
			}
		}
	})

	t.Run("CleanSubject", func(t *testing.T) {
		store := &fakeStore{nationalIDCount: 0, addressCount: 1, activeCards: 1}
		ev := NewEvaluator(store, staticFrequency(3, nil), cfg, 4)

		findings, err := ev.Evaluate(ctx, testSubject())
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if len(findings) != 0 {
			t.Errorf("expected no findings for clean subject, got %d", len(findings))
		}
	})

	t.Run("PartialStoreFailure", func(t *testing.T) {
		// Frequency lookup fails but the income rule needs no store, so
		// its finding still comes back with the joined error.
		store := &fakeStore{err: errors.New("db down")}
		ev := NewEvaluator(store, staticFrequency(0, errors.New("cache down")), cfg, 4)

		s := testSubject()
		s.DeclaredIncome = 200000

		findings, err := ev.Evaluate(ctx, s)
		if err == nil {
			t.Error("expected joined errors from failing rules")
		}
		if len(findings) != 1 {
			t.Errorf("expected 1 finding from income rule, got %d", len(findings))
		}
	})
}
