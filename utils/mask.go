package utils

import "strings"

const visibleAccountDigits = 4

// MaskAccountNumber hides everything but the last four characters,
// e.g. 0123456789 -> ******6789
func MaskAccountNumber(accountNumber string) string {
	accountNumber = strings.TrimSpace(accountNumber)
	if len(accountNumber) <= visibleAccountDigits {
		return strings.Repeat("*", len(accountNumber))
	}
	hidden := len(accountNumber) - visibleAccountDigits
	return strings.Repeat("*", hidden) + accountNumber[hidden:]
}
