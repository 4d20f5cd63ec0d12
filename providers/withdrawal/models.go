package withdrawal

import (
	"encoding/json"

	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
)

// envelope mirrors models.SuccessResponse with a lazily decoded payload
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Version string          `json:"version"`
}

type Bank struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Type string `json:"type"`
}

type BankCollection []Bank

func (b Bank) toDomain() domain.BankDescriptor {
	return domain.BankDescriptor{
		Code: b.Code,
		Name: b.Name,
		Slug: b.Slug,
		Type: domain.ParseBankType(b.Type),
	}
}

func (c BankCollection) toDomain() domain.BankCollection {
	banks := make(domain.BankCollection, 0, len(c))
	for _, bank := range c {
		banks = append(banks, bank.toDomain())
	}
	return banks
}

type VerifyAccountRequest struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
}

type AccountInfo struct {
	AccountName   string `json:"account_name"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number,omitempty"`
	BankCode      string `json:"bank_code,omitempty"`
}

// WithdrawRequest sends the amount as a JSON number, not a quoted decimal
type WithdrawRequest struct {
	Amount        json.Number `json:"amount"`
	BankCode      string      `json:"bank_code"`
	AccountNumber string      `json:"account_number"`
}

func toWithdrawRequest(req domain.WithdrawalRequest) WithdrawRequest {
	return WithdrawRequest{
		Amount:        json.Number(req.Amount.String()),
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
	}
}
