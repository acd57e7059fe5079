package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opensource-welfare/kestrel/internal/domain"
)

// SaveSubject stores a beneficiary record.
func (r *SQLRepository) SaveSubject(ctx context.Context, s *domain.Subject) error {
	if s.ID == "" {
		return fmt.Errorf("%w: subject ID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO subjects (
			id, national_id, name, address, district, state, phone,
			family_size, declared_income, card_type, status, verification,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			national_id = excluded.national_id,
			name = excluded.name,
			address = excluded.address,
			district = excluded.district,
			state = excluded.state,
			phone = excluded.phone,
			family_size = excluded.family_size,
			declared_income = excluded.declared_income,
			card_type = excluded.card_type,
			status = excluded.status,
			verification = excluded.verification,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		s.ID, s.NationalID, s.Name, s.Address, s.District, s.State, s.Phone,
		s.FamilySize, s.DeclaredIncome, s.CardType, s.Status, s.Verification,
		s.CreatedAt, s.UpdatedAt,
	)
	return err
}

const subjectColumns = `id, national_id, name, address, district, state, phone,
		   family_size, declared_income, card_type, status, verification,
		   created_at, updated_at`

func scanSubject(row interface{ Scan(...any) error }) (*domain.Subject, error) {
	var s domain.Subject
	var phone sql.NullString
	err := row.Scan(
		&s.ID, &s.NationalID, &s.Name, &s.Address, &s.District, &s.State, &phone,
		&s.FamilySize, &s.DeclaredIncome, &s.CardType, &s.Status, &s.Verification,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Phone = phone.String
	return &s, nil
}

// GetSubject retrieves a beneficiary by ID.
func (r *SQLRepository) GetSubject(ctx context.Context, id string) (*domain.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE id = ?`

	s, err := scanSubject(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSubjects retrieves beneficiaries matching the filter.
func (r *SQLRepository) ListSubjects(ctx context.Context, filter domain.SubjectFilter) ([]*domain.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE 1 = 1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		query += ` AND (LOWER(name) LIKE ? OR LOWER(national_id) LIKE ?)`
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, pattern, pattern)
	}

	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []*domain.Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// UpdateSubjectStatus changes the lifecycle status of a beneficiary.
func (r *SQLRepository) UpdateSubjectStatus(ctx context.Context, id string, status domain.SubjectStatus) error {
	query := `UPDATE subjects SET status = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// UpdateSubjectVerification records the outcome of identity verification.
func (r *SQLRepository) UpdateSubjectVerification(ctx context.Context, id string, v domain.VerificationStatus) error {
	query := `UPDATE subjects SET verification = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), v, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// CountByNationalID counts other subjects registered under the same
// national ID. The given subject is excluded from the count.
func (r *SQLRepository) CountByNationalID(ctx context.Context, nationalID string, excludeID string) (int, error) {
	query := `SELECT COUNT(*) FROM subjects WHERE national_id = ? AND id != ?`

	var count int
	err := r.db.QueryRowContext(ctx, r.rebind(query), nationalID, excludeID).Scan(&count)
	return count, err
}

// CountByAddress counts all subjects registered at an address,
// the holder included.
func (r *SQLRepository) CountByAddress(ctx context.Context, address string) (int, error) {
	query := `SELECT COUNT(*) FROM subjects WHERE address = ?`

	var count int
	err := r.db.QueryRowContext(ctx, r.rebind(query), address).Scan(&count)
	return count, err
}

// SaveCard stores an entitlement card.
func (r *SQLRepository) SaveCard(ctx context.Context, c *domain.Card) error {
	query := `
		INSERT INTO cards (id, number, subject_id, type, status, issued_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			type = excluded.type
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		c.ID, c.Number, c.SubjectID, c.Type, c.Status, c.IssuedAt,
	)
	return err
}

// ListCardsBySubject retrieves all cards issued to a subject.
func (r *SQLRepository) ListCardsBySubject(ctx context.Context, subjectID string) ([]*domain.Card, error) {
	query := `
		SELECT id, number, subject_id, type, status, issued_at
		FROM cards
		WHERE subject_id = ?
		ORDER BY issued_at
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(&c.ID, &c.Number, &c.SubjectID, &c.Type, &c.Status, &c.IssuedAt); err != nil {
			return nil, err
		}
		cards = append(cards, &c)
	}
	return cards, rows.Err()
}

// CountActiveCards counts active entitlement cards held by a subject.
func (r *SQLRepository) CountActiveCards(ctx context.Context, subjectID string) (int, error) {
	query := `SELECT COUNT(*) FROM cards WHERE subject_id = ? AND status = ?`

	var count int
	err := r.db.QueryRowContext(ctx, r.rebind(query), subjectID, domain.CardActive).Scan(&count)
	return count, err
}

// SaveShop stores a distribution outlet.
func (r *SQLRepository) SaveShop(ctx context.Context, s *domain.Shop) error {
	query := `
		INSERT INTO shops (id, code, name, district, state, owner)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			owner = excluded.owner
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		s.ID, s.Code, s.Name, s.District, s.State, s.Owner,
	)
	return err
}

// ListShops retrieves all distribution outlets.
func (r *SQLRepository) ListShops(ctx context.Context) ([]*domain.Shop, error) {
	query := `SELECT id, code, name, district, state, owner FROM shops ORDER BY code`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shops []*domain.Shop
	for rows.Next() {
		var s domain.Shop
		var owner sql.NullString
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.District, &s.State, &owner); err != nil {
			return nil, err
		}
		s.Owner = owner.String
		shops = append(shops, &s)
	}
	return shops, rows.Err()
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
