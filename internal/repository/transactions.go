package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-welfare/kestrel/internal/domain"
)

// SaveTransaction stores a distribution record.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("%w: transaction ID is required", ErrInvalidInput)
	}

	items, _ := json.Marshal(tx.Items)

	query := `
		INSERT INTO transactions (
			id, subject_id, card_number, shop_id, items, total_amount,
			timestamp, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tx.ID, tx.SubjectID, tx.CardNumber, tx.ShopID,
		string(items), tx.TotalAmount,
		tx.Timestamp, tx.CreatedAt,
	)
	return err
}

const transactionColumns = `id, subject_id, card_number, shop_id, items, total_amount,
		   timestamp, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (*domain.Transaction, error) {
	var tx domain.Transaction
	var items string

	err := row.Scan(
		&tx.ID, &tx.SubjectID, &tx.CardNumber, &tx.ShopID,
		&items, &tx.TotalAmount,
		&tx.Timestamp, &tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if items != "" {
		json.Unmarshal([]byte(items), &tx.Items)
	}
	return &tx, nil
}

// GetTransaction retrieves a distribution record by ID.
func (r *SQLRepository) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// ListTransactions retrieves the most recent distributions.
func (r *SQLRepository) ListTransactions(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY timestamp DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	return r.queryTransactions(ctx, query)
}

// ListTransactionsBySubject retrieves a subject's distributions since a cutoff.
func (r *SQLRepository) ListTransactionsBySubject(ctx context.Context, subjectID string, since time.Time) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE subject_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	return r.queryTransactions(ctx, query, subjectID, since)
}

// CountTransactionsBySubject counts a subject's distributions since a cutoff.
func (r *SQLRepository) CountTransactionsBySubject(ctx context.Context, subjectID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE subject_id = ? AND timestamp >= ?`

	var count int
	err := r.db.QueryRowContext(ctx, r.rebind(query), subjectID, since).Scan(&count)
	return count, err
}

// AllTransactions retrieves every stored distribution, oldest first.
// Used to build the anomaly model's training set.
func (r *SQLRepository) AllTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY timestamp`

	return r.queryTransactions(ctx, query)
}

func (r *SQLRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
