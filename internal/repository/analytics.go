package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-welfare/kestrel/internal/domain"
)

// DashboardStats aggregates headline counts for the review console.
func (r *SQLRepository) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	var stats domain.DashboardStats

	counts := []struct {
		query string
		args  []any
		dest  *int
	}{
		{`SELECT COUNT(*) FROM subjects`, nil, &stats.TotalSubjects},
		{`SELECT COUNT(*) FROM subjects WHERE status = ?`, []any{domain.SubjectActive}, &stats.ActiveSubjects},
		{`SELECT COUNT(*) FROM subjects WHERE status = ?`, []any{domain.SubjectFlagged}, &stats.FlaggedSubjects},
		{`SELECT COUNT(*) FROM transactions`, nil, &stats.TotalTransactions},
		{`SELECT COUNT(*) FROM alerts WHERE status = ?`, []any{domain.AlertPending}, &stats.PendingAlerts},
		{`SELECT COUNT(*) FROM alerts WHERE status = ?`, []any{domain.AlertConfirmed}, &stats.ConfirmedAlerts},
	}

	for _, c := range counts {
		if err := r.db.QueryRowContext(ctx, r.rebind(c.query), c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("dashboard stats query failed: %w", err)
		}
	}
	return &stats, nil
}

// AlertCountsByType groups alerts by fraud type.
func (r *SQLRepository) AlertCountsByType(ctx context.Context) (map[string]int, error) {
	query := `SELECT fraud_type, COUNT(*) FROM alerts GROUP BY fraud_type`
	return r.countGroups(ctx, query)
}

// AlertCountsByDistrict groups alerts by the subject's district.
func (r *SQLRepository) AlertCountsByDistrict(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT s.district, COUNT(*)
		FROM alerts a
		JOIN subjects s ON s.id = a.subject_id
		GROUP BY s.district
	`
	return r.countGroups(ctx, query)
}

func (r *SQLRepository) countGroups(ctx context.Context, query string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// TransactionTrend returns per-day transaction volume over the trailing window.
func (r *SQLRepository) TransactionTrend(ctx context.Context, days int) ([]domain.TrendPoint, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	// Date bucketing differs between the two supported drivers.
	dateExpr := `strftime('%Y-%m-%d', timestamp)`
	if r.driver == "postgres" {
		dateExpr = `to_char(timestamp, 'YYYY-MM-DD')`
	}

	query := fmt.Sprintf(`
		SELECT %s AS day, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM transactions
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day
	`, dateExpr)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trend []domain.TrendPoint
	for rows.Next() {
		var p domain.TrendPoint
		if err := rows.Scan(&p.Date, &p.Count, &p.Amount); err != nil {
			return nil, err
		}
		trend = append(trend, p)
	}
	return trend, rows.Err()
}
