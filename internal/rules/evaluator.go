package rules

import (
	"context"
	"errors"
	"sync"

	"github.com/opensource-welfare/kestrel/internal/domain"
)

// Evaluator runs every built-in rule against a subject.
type Evaluator struct {
	rules      []Rule
	maxWorkers int
}

// NewEvaluator builds an evaluator with the standard rule set.
func NewEvaluator(store Store, frequency FrequencyGetter, cfg domain.DetectionConfig, maxWorkers int) *Evaluator {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	return &Evaluator{
		rules: []Rule{
			&DuplicateIdentityRule{store: store},
			&DuplicateAddressRule{store: store, threshold: cfg.AddressShareThreshold},
			&AbnormalFrequencyRule{
				frequency:  frequency,
				threshold:  cfg.FrequencyThreshold,
				windowDays: cfg.FrequencyWindowDays,
			},
			&MultipleEntitlementsRule{store: store},
			&IncomeMismatchRule{cutoff: cfg.HighIncomeCutoff},
		},
		maxWorkers: maxWorkers,
	}
}

// Rules returns the configured rule set.
func (e *Evaluator) Rules() []Rule {
	return e.rules
}

// Evaluate runs all rules against a subject in parallel. Rules run
// exhaustively even when earlier ones fire. Findings from successful
// rules are returned alongside any joined rule errors.
func (e *Evaluator) Evaluate(ctx context.Context, subject *domain.Subject) ([]*domain.Finding, error) {
	findings := make([]*domain.Finding, len(e.rules))
	errs := make([]error, len(e.rules))

	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range e.rules {
		wg.Add(1)
		go func(idx int, r Rule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			findings[idx], errs[idx] = r.Evaluate(ctx, subject)
		}(i, rule)
	}

	wg.Wait()

	var fired []*domain.Finding
	for _, f := range findings {
		if f != nil {
			fired = append(fired, f)
		}
	}
	return fired, errors.Join(errs...)
}
