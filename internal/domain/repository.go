// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Subject operations
	SaveSubject(ctx context.Context, s *Subject) error
	GetSubject(ctx context.Context, id string) (*Subject, error)
	ListSubjects(ctx context.Context, filter SubjectFilter) ([]*Subject, error)
	UpdateSubjectStatus(ctx context.Context, id string, status SubjectStatus) error
	UpdateSubjectVerification(ctx context.Context, id string, v VerificationStatus) error

	// Duplicate detection lookups. CountByNationalID excludes the given
	// subject; CountByAddress counts every holder of the address.
	CountByNationalID(ctx context.Context, nationalID string, excludeID string) (int, error)
	CountByAddress(ctx context.Context, address string) (int, error)

	// Card operations
	SaveCard(ctx context.Context, c *Card) error
	ListCardsBySubject(ctx context.Context, subjectID string) ([]*Card, error)
	CountActiveCards(ctx context.Context, subjectID string) (int, error)

	// Shop operations
	SaveShop(ctx context.Context, s *Shop) error
	ListShops(ctx context.Context) ([]*Shop, error)

	// Transaction operations
	SaveTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	ListTransactions(ctx context.Context, limit int) ([]*Transaction, error)
	ListTransactionsBySubject(ctx context.Context, subjectID string, since time.Time) ([]*Transaction, error)
	CountTransactionsBySubject(ctx context.Context, subjectID string, since time.Time) (int, error)
	AllTransactions(ctx context.Context) ([]*Transaction, error)

	// Alert operations
	SaveAlert(ctx context.Context, a *Alert) error
	GetAlert(ctx context.Context, id string) (*Alert, error)
	ListAlerts(ctx context.Context, status AlertStatus) ([]*Alert, error)
	FindPendingAlert(ctx context.Context, subjectID string, fraudType FraudType) (*Alert, error)
	UpdateAlertStatus(ctx context.Context, id string, status AlertStatus, resolvedBy string) error

	// Custom rule configuration
	SaveRuleConfig(ctx context.Context, rule *RuleConfig) error
	GetRuleConfig(ctx context.Context, ruleID string) (*RuleConfig, error)
	ListRuleConfigs(ctx context.Context) ([]*RuleConfig, error)

	// Admin accounts
	SaveAdmin(ctx context.Context, a *Admin) error
	GetAdminByEmail(ctx context.Context, email string) (*Admin, error)

	// Analytics
	DashboardStats(ctx context.Context) (*DashboardStats, error)
	AlertCountsByType(ctx context.Context) (map[string]int, error)
	AlertCountsByDistrict(ctx context.Context) (map[string]int, error)
	TransactionTrend(ctx context.Context, days int) ([]TrendPoint, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// SubjectFilter narrows subject listings.
type SubjectFilter struct {
	Status SubjectStatus // empty matches all
	Search string        // case-insensitive match on name or national ID
	Limit  int
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
