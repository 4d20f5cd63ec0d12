package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	StatusPending    WithdrawalStatus = "pending"
	StatusProcessing WithdrawalStatus = "processing"
	StatusCompleted  WithdrawalStatus = "completed"
	StatusFailed     WithdrawalStatus = "failed"
	StatusCancelled  WithdrawalStatus = "cancelled"
)

var ValidStatuses = []WithdrawalStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled}

// IsTerminal is true once no further transitions can happen
func (s WithdrawalStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

func IsStatusValid(request string) bool {
	for _, s := range ValidStatuses {
		if WithdrawalStatus(request) == s {
			return true
		}
	}

	return false
}

// WithdrawalRequest is the submission payload. Build it with NewWithdrawalRequest.
type WithdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	BankCode      string          `json:"bank_code"`
	AccountNumber string          `json:"account_number"`
}

// NewWithdrawalRequest takes the destination from a verified account only
func NewWithdrawalRequest(account VerifiedAccount, amount decimal.Decimal) WithdrawalRequest {
	return WithdrawalRequest{
		Amount:        amount,
		BankCode:      account.BankCode,
		AccountNumber: account.AccountNumber,
	}
}

type WithdrawalRecord struct {
	ID                string           `json:"id"`
	Amount            decimal.Decimal  `json:"amount"`
	FinalAmount       decimal.Decimal  `json:"final_amount"`
	Status            WithdrawalStatus `json:"status"`
	BankName          string           `json:"bank_name"`
	AccountNumber     string           `json:"account_number"`
	AccountName       string           `json:"account_name"`
	PaystackReference *string          `json:"paystack_reference"`
	FailureReason     *string          `json:"failure_reason"`
	CreatedAt         time.Time        `json:"created_at"`
	ProcessedAt       *time.Time       `json:"processed_at"`
	CompletedAt       *time.Time       `json:"completed_at"`
}

// DefaultHistoryPerPage is the page size of the cached first history page
const DefaultHistoryPerPage = 10

type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

type HistoryPage struct {
	Records    []WithdrawalRecord `json:"withdrawals"`
	Pagination Pagination         `json:"pagination"`
}
