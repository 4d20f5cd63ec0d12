package domain

import (
	"sort"
	"strings"
)

type BankType string

const (
	BankTypeCommercial     BankType = "commercial"
	BankTypeMicrofinance   BankType = "microfinance"
	BankTypeMerchant       BankType = "merchant"
	BankTypePaymentService BankType = "payment_service"
	BankTypeOther          BankType = "other"
)

// ParseBankType maps server supplied types onto the known set, anything else is other
func ParseBankType(raw string) BankType {
	switch BankType(strings.ToLower(strings.TrimSpace(raw))) {
	case BankTypeCommercial:
		return BankTypeCommercial
	case BankTypeMicrofinance:
		return BankTypeMicrofinance
	case BankTypeMerchant:
		return BankTypeMerchant
	case BankTypePaymentService:
		return BankTypePaymentService
	default:
		return BankTypeOther
	}
}

type BankCollection []BankDescriptor

type BankDescriptor struct {
	Code    string   `json:"code" redis:"code"`
	Name    string   `json:"name" redis:"name"`
	Slug    string   `json:"slug,omitempty" redis:"slug"`
	Type    BankType `json:"type" redis:"type"`
	LogoURL string   `json:"logo_url,omitempty" redis:"logo_url"`
}

// FindBanks does a case-insensitive substring match on name and slug
func (c BankCollection) FindBanks(query string) BankCollection {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.Sorted()
	}

	matches := BankCollection{}
	for _, bank := range c {
		if strings.Contains(strings.ToLower(bank.Name), q) {
			matches = append(matches, bank)
			continue
		}

		if strings.Contains(strings.ToLower(bank.Slug), q) {
			matches = append(matches, bank)
			continue
		}
	}

	return matches.Sorted()
}

// Sorted returns a copy ordered by name, then code
func (c BankCollection) Sorted() BankCollection {
	out := make(BankCollection, len(c))
	copy(out, c)
	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].Code < out[j].Code
	})
	return out
}
