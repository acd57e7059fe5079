// Package anomaly provides unsupervised screening of distribution records.
package anomaly

import (
	"errors"
	"fmt"

	"github.com/opensource-welfare/kestrel/internal/domain"
)

// FeatureCount is the width of the model's feature vector.
const FeatureCount = 3

// Extract builds the feature vector for a distribution record:
// item count, total amount, and hour of day. Values are raw, not normalized.
func Extract(tx *domain.Transaction) ([]float64, error) {
	if tx == nil {
		return nil, errors.New("nil transaction")
	}
	if tx.Timestamp.IsZero() {
		return nil, fmt.Errorf("transaction %s has no timestamp", tx.ID)
	}

	return []float64{
		float64(len(tx.Items)),
		tx.TotalAmount,
		float64(tx.Timestamp.Hour()),
	}, nil
}
