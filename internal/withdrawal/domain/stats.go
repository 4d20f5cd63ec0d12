package domain

import "github.com/shopspring/decimal"

type MonthlyStat struct {
	Month       string          `json:"month"` // YYYY-MM
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type WithdrawalStats struct {
	PeriodDays       int             `json:"period_days"`
	SuccessCount     int             `json:"success_count"`
	FailedCount      int             `json:"failed_count"`
	PendingCount     int             `json:"pending_count"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	SuccessRate      decimal.Decimal `json:"success_rate"`
	MonthlyBreakdown []MonthlyStat   `json:"monthly_breakdown"`
}
