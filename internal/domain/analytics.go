package domain

// DashboardStats aggregates the headline numbers for the review console.
type DashboardStats struct {
	TotalSubjects     int `json:"totalSubjects"`
	ActiveSubjects    int `json:"activeSubjects"`
	FlaggedSubjects   int `json:"flaggedSubjects"`
	TotalTransactions int `json:"totalTransactions"`
	PendingAlerts     int `json:"pendingAlerts"`
	ConfirmedAlerts   int `json:"confirmedAlerts"`
}

// TrendPoint is one day of transaction volume.
type TrendPoint struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}
