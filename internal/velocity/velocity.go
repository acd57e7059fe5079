// Package velocity provides distribution frequency counting.
package velocity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/opensource-welfare/kestrel/internal/domain"
)

// cacheTTL bounds staleness of cached frequency counts. A short TTL
// keeps repeated scans of the same subject cheap without letting the
// abnormal-frequency rule run far behind the store.
const cacheTTL = 30 * time.Second

// Counter is the subset of the repository the service counts from.
type Counter interface {
	CountTransactionsBySubject(ctx context.Context, subjectID string, since time.Time) (int, error)
}

// Service counts a subject's distributions over a trailing window,
// with a cache in front of the repository.
type Service struct {
	counter Counter
	cache   domain.Cache
}

// NewService creates a new frequency service.
func NewService(counter Counter, cache domain.Cache) *Service {
	return &Service{
		counter: counter,
		cache:   cache,
	}
}

// TransactionCount returns the number of distributions for a subject
// within the trailing window in days. This matches the FrequencyGetter
// signature expected by the rule evaluator.
func (s *Service) TransactionCount(ctx context.Context, subjectID string, windowDays int) (int64, error) {
	if subjectID == "" {
		return 0, fmt.Errorf("subjectID is required")
	}
	if windowDays <= 0 {
		windowDays = 30
	}

	key := fmt.Sprintf("freq:%s:%d", subjectID, windowDays)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil && cached != nil {
			if count, err := strconv.ParseInt(string(cached), 10, 64); err == nil {
				return count, nil
			}
		}
	}

	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	count, err := s.counter.CountTransactionsBySubject(ctx, subjectID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, []byte(strconv.FormatInt(int64(count), 10)), cacheTTL)
	}

	return int64(count), nil
}

// Getter returns a FrequencyGetter-compatible function for the rule
// evaluator.
func (s *Service) Getter() func(ctx context.Context, subjectID string, windowDays int) (int64, error) {
	return s.TransactionCount
}
