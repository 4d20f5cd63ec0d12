package eligibility

import (
	"errors"
	"fmt"

	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/shopspring/decimal"
)

type Reason string

const (
	ReasonNone                Reason = ""
	ReasonInvalidAmount       Reason = "invalid_amount"
	ReasonPendingWithdrawal   Reason = "pending_withdrawal"
	ReasonBelowMinimum        Reason = "below_minimum"
	ReasonAboveMaximum        Reason = "above_maximum"
	ReasonInsufficientBalance Reason = "insufficient_balance"
	ReasonDailyLimit          Reason = "daily_limit"
	ReasonMonthlyLimit        Reason = "monthly_limit"
	ReasonWithdrawalsDisabled Reason = "withdrawals_disabled"
)

// Decision is advisory, the server has the final word
type Decision struct {
	Eligible bool
	Reason   Reason
	Message  string
}

func (d Decision) Err() error {
	if d.Eligible {
		return nil
	}
	return &IneligibleError{Reason: d.Reason, Message: d.Message}
}

// IneligibleError matches domain.ErrBusinessRule, so a local block reads the
// same as a server rejection. A non-positive amount matches
// domain.ErrInvalidAmount instead.
type IneligibleError struct {
	Reason  Reason
	Message string
}

func (e *IneligibleError) Error() string {
	return e.Message
}

func (e *IneligibleError) Unwrap() error {
	if e.Reason == ReasonInvalidAmount {
		return domain.ErrInvalidAmount
	}
	return domain.ErrBusinessRule
}

// IsIneligible reports the reason when err is an IneligibleError
func IsIneligible(err error) (Reason, bool) {
	var ie *IneligibleError
	if errors.As(err, &ie) {
		return ie.Reason, true
	}
	return ReasonNone, false
}

// Evaluate checks amount against limits. The first failing rule wins, in
// this order: pending withdrawal, min/max, balance, daily, monthly, and the
// server's own can_withdraw verdict.
func Evaluate(amount decimal.Decimal, limits domain.WithdrawalLimits) Decision {
	if !amount.IsPositive() {
		return deny(ReasonInvalidAmount, domain.ErrInvalidAmount.Error())
	}

	if limits.HasPendingWithdrawal {
		return deny(ReasonPendingWithdrawal, "You have a pending withdrawal. Wait for it to complete before starting another.")
	}

	if amount.LessThan(limits.MinWithdrawal) {
		return deny(ReasonBelowMinimum, fmt.Sprintf("Minimum withdrawal is %s", naira(limits.MinWithdrawal)))
	}

	if amount.GreaterThan(limits.MaxWithdrawal) {
		return deny(ReasonAboveMaximum, fmt.Sprintf("Maximum withdrawal is %s", naira(limits.MaxWithdrawal)))
	}

	if amount.GreaterThan(limits.WalletBalance) {
		return deny(ReasonInsufficientBalance, fmt.Sprintf("Insufficient balance. Available: %s", naira(limits.WalletBalance)))
	}

	if limits.DailyUsed.Add(amount).GreaterThan(limits.DailyLimit) {
		return deny(ReasonDailyLimit, fmt.Sprintf("Daily limit exceeded. Remaining today: %s", naira(limits.DailyRemaining())))
	}

	if limits.MonthlyUsed.Add(amount).GreaterThan(limits.MonthlyLimit) {
		return deny(ReasonMonthlyLimit, fmt.Sprintf("Monthly limit exceeded. Remaining this month: %s", naira(limits.MonthlyRemaining())))
	}

	if !limits.CanWithdraw {
		return deny(ReasonWithdrawalsDisabled, "Withdrawals are currently unavailable for this wallet")
	}

	return Decision{Eligible: true}
}

func deny(reason Reason, message string) Decision {
	return Decision{Reason: reason, Message: message}
}

func naira(d decimal.Decimal) string {
	return "₦" + d.StringFixed(2)
}
