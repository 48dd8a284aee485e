package models

// MonthlyStats is the revenue aggregate for one calendar month (YYYY-MM).
type MonthlyStats struct {
	Month              string `json:"month"`
	Revenue            int64  `json:"revenue"`
	NewSubscribers     int64  `json:"newSubscribers"`
	ChurnedSubscribers int64  `json:"churnedSubscribers"`
}
