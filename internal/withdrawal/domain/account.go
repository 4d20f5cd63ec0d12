package domain

// VerifiedAccount is only meaningful for the exact (AccountNumber, BankCode)
// pair that produced it.
type VerifiedAccount struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	AccountName   string `json:"account_name"`
	BankName      string `json:"bank_name"`
}

func (v *VerifiedAccount) Matches(accountNumber, bankCode string) bool {
	return v != nil && v.AccountNumber == accountNumber && v.BankCode == bankCode
}
