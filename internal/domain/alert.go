package domain

import (
	"time"
)

// FraudType classifies a detection finding.
type FraudType string

const (
	FraudDuplicateIdentity    FraudType = "duplicate-identity"
	FraudDuplicateAddress     FraudType = "duplicate-address"
	FraudAbnormalFrequency    FraudType = "abnormal-frequency"
	FraudMultipleEntitlements FraudType = "multiple-entitlements"
	FraudIncomeMismatch       FraudType = "income-mismatch"
	FraudAnomalousPattern     FraudType = "anomalous-transaction-pattern"
)

// Finding is the outcome of a single rule firing against a subject.
type Finding struct {
	FraudType  FraudType      `json:"fraudType"`
	Confidence float64        `json:"confidence"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
}

// AlertStatus is the review state of a fraud alert.
type AlertStatus string

const (
	AlertPending   AlertStatus = "pending"
	AlertConfirmed AlertStatus = "confirmed"
	AlertDismissed AlertStatus = "dismissed"
)

// Alert is a persisted fraud alert awaiting operator review.
type Alert struct {
	ID         string         `json:"id"`
	SubjectID  string         `json:"subjectId"`
	FraudType  FraudType      `json:"fraudType"`
	Confidence float64        `json:"confidence"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Status     AlertStatus    `json:"status"`

	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy string     `json:"resolvedBy,omitempty"`
}

// ScanResult summarizes a completed subject scan.
type ScanResult struct {
	SubjectID     string     `json:"subjectId"`
	Findings      []*Finding `json:"findings"`
	AlertsCreated int        `json:"alertsCreated"`
	ScannedAt     time.Time  `json:"scannedAt"`
}
