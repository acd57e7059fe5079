package domain

import (
	"time"
)

// Transaction represents a single distribution of goods against a card.
type Transaction struct {
	ID         string `json:"id"`
	SubjectID  string `json:"subjectId"`
	CardNumber string `json:"cardNumber"`
	ShopID     string `json:"shopId"`

	Items       []LineItem `json:"items"`
	TotalAmount float64    `json:"totalAmount"`

	// Timestamp is when the distribution happened; a zero value is invalid.
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`
}

// LineItem is one commodity line within a distribution.
type LineItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
	Price    float64 `json:"price"`
}

// TransactionRequest is the API request payload for recording a distribution.
type TransactionRequest struct {
	SubjectID  string     `json:"subjectId"`
	CardNumber string     `json:"cardNumber"`
	ShopID     string     `json:"shopId"`
	Items      []LineItem `json:"items"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// ToTransaction converts a request to a Transaction domain object.
// The total is derived from the line items.
func (r *TransactionRequest) ToTransaction() *Transaction {
	now := time.Now().UTC()
	ts := now
	if r.Timestamp != nil {
		ts = r.Timestamp.UTC()
	}

	var total float64
	for _, item := range r.Items {
		total += item.Quantity * item.Price
	}

	return &Transaction{
		SubjectID:   r.SubjectID,
		CardNumber:  r.CardNumber,
		ShopID:      r.ShopID,
		Items:       r.Items,
		TotalAmount: total,
		Timestamp:   ts,
		CreatedAt:   now,
	}
}
