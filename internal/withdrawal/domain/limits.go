package domain

import "github.com/shopspring/decimal"

type WithdrawalLimits struct {
	WalletBalance        decimal.Decimal `json:"wallet_balance"`
	DailyLimit           decimal.Decimal `json:"daily_limit"`
	MonthlyLimit         decimal.Decimal `json:"monthly_limit"`
	DailyUsed            decimal.Decimal `json:"daily_used"`
	MonthlyUsed          decimal.Decimal `json:"monthly_used"`
	MinWithdrawal        decimal.Decimal `json:"min_withdrawal"`
	MaxWithdrawal        decimal.Decimal `json:"max_withdrawal"`
	CanWithdraw          bool            `json:"can_withdraw"`
	HasPendingWithdrawal bool            `json:"has_pending_withdrawal"`
}

// DailyRemaining never goes below zero
func (l WithdrawalLimits) DailyRemaining() decimal.Decimal {
	return nonNegative(l.DailyLimit.Sub(l.DailyUsed))
}

func (l WithdrawalLimits) MonthlyRemaining() decimal.Decimal {
	return nonNegative(l.MonthlyLimit.Sub(l.MonthlyUsed))
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
