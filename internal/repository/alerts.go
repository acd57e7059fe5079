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

// SaveAlert stores a fraud alert.
func (r *SQLRepository) SaveAlert(ctx context.Context, a *domain.Alert) error {
	if a.ID == "" {
		return fmt.Errorf("%w: alert ID is required", ErrInvalidInput)
	}

	details, _ := json.Marshal(a.Details)

	query := `
		INSERT INTO alerts (
			id, subject_id, fraud_type, confidence, message, details,
			status, created_at, resolved_at, resolved_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		a.ID, a.SubjectID, a.FraudType, a.Confidence, a.Message,
		string(details), a.Status, a.CreatedAt, a.ResolvedAt, a.ResolvedBy,
	)
	return err
}

const alertColumns = `id, subject_id, fraud_type, confidence, message, details,
		   status, created_at, resolved_at, resolved_by`

func scanAlert(row interface{ Scan(...any) error }) (*domain.Alert, error) {
	var a domain.Alert
	var message, details, resolvedBy sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.SubjectID, &a.FraudType, &a.Confidence, &message, &details,
		&a.Status, &a.CreatedAt, &resolvedAt, &resolvedBy,
	)
	if err != nil {
		return nil, err
	}

	a.Message = message.String
	a.ResolvedBy = resolvedBy.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	if details.String != "" {
		json.Unmarshal([]byte(details.String), &a.Details)
	}
	return &a, nil
}

// GetAlert retrieves a fraud alert by ID.
func (r *SQLRepository) GetAlert(ctx context.Context, id string) (*domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`

	a, err := scanAlert(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAlerts retrieves alerts, optionally filtered by review status.
func (r *SQLRepository) ListAlerts(ctx context.Context, status domain.AlertStatus) ([]*domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`
	var args []any

	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// FindPendingAlert looks up an unresolved alert for a subject and fraud type.
// Used for alert deduplication before emission.
func (r *SQLRepository) FindPendingAlert(ctx context.Context, subjectID string, fraudType domain.FraudType) (*domain.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE subject_id = ? AND fraud_type = ? AND status = ?
		LIMIT 1
	`

	a, err := scanAlert(r.db.QueryRowContext(ctx, r.rebind(query), subjectID, fraudType, domain.AlertPending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAlertStatus resolves an alert.
func (r *SQLRepository) UpdateAlertStatus(ctx context.Context, id string, status domain.AlertStatus, resolvedBy string) error {
	query := `
		UPDATE alerts
		SET status = ?, resolved_at = ?, resolved_by = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), status, time.Now().UTC(), resolvedBy, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// SaveRuleConfig stores a custom screening rule.
func (r *SQLRepository) SaveRuleConfig(ctx context.Context, rule *domain.RuleConfig) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: rule ID is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO rule_configs (
			id, name, description, expression, confidence, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			confidence = excluded.confidence,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description, rule.Expression,
		rule.Confidence, enabled, now, now,
	)
	return err
}

// GetRuleConfig retrieves an active custom rule by ID.
func (r *SQLRepository) GetRuleConfig(ctx context.Context, ruleID string) (*domain.RuleConfig, error) {
	query := `
		SELECT id, name, description, expression, confidence, enabled
		FROM rule_configs
		WHERE id = ? AND enabled = 1
	`

	var cfg domain.RuleConfig
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), ruleID).Scan(
		&cfg.ID, &cfg.Name, &cfg.Description, &cfg.Expression, &cfg.Confidence, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cfg.Enabled = enabled == 1
	return &cfg, nil
}

// ListRuleConfigs retrieves all active custom rules.
func (r *SQLRepository) ListRuleConfigs(ctx context.Context) ([]*domain.RuleConfig, error) {
	query := `
		SELECT id, name, description, expression, confidence, enabled
		FROM rule_configs
		WHERE enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.RuleConfig
	for rows.Next() {
		var cfg domain.RuleConfig
		var enabled int

		if err := rows.Scan(
			&cfg.ID, &cfg.Name, &cfg.Description, &cfg.Expression, &cfg.Confidence, &enabled,
		); err != nil {
			return nil, err
		}

		cfg.Enabled = enabled == 1
		configs = append(configs, &cfg)
	}
	return configs, rows.Err()
}

// SaveAdmin stores an operator account.
func (r *SQLRepository) SaveAdmin(ctx context.Context, a *domain.Admin) error {
	query := `
		INSERT INTO admins (id, email, name, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		a.ID, a.Email, a.Name, a.PasswordHash, a.Role, a.CreatedAt,
	)
	return err
}

// GetAdminByEmail retrieves an operator account by email.
func (r *SQLRepository) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	query := `
		SELECT id, email, name, password_hash, role, created_at
		FROM admins
		WHERE email = ?
	`

	var a domain.Admin
	err := r.db.QueryRowContext(ctx, r.rebind(query), email).Scan(
		&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.Role, &a.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
