package api

import "github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"

func seedBanks() domain.BankCollection {
	return domain.BankCollection{
		{Code: "044", Name: "Access Bank", Slug: "access-bank", Type: domain.BankTypeCommercial},
		{Code: "023", Name: "Citibank Nigeria", Slug: "citibank-nigeria", Type: domain.BankTypeCommercial},
		{Code: "050", Name: "Ecobank Nigeria", Slug: "ecobank-nigeria", Type: domain.BankTypeCommercial},
		{Code: "070", Name: "Fidelity Bank", Slug: "fidelity-bank", Type: domain.BankTypeCommercial},
		{Code: "011", Name: "First Bank of Nigeria", Slug: "first-bank-of-nigeria", Type: domain.BankTypeCommercial},
		{Code: "058", Name: "Guaranty Trust Bank", Slug: "guaranty-trust-bank", Type: domain.BankTypeCommercial},
		{Code: "033", Name: "United Bank For Africa", Slug: "united-bank-for-africa", Type: domain.BankTypeCommercial},
		{Code: "057", Name: "Zenith Bank", Slug: "zenith-bank", Type: domain.BankTypeCommercial},
		{Code: "50211", Name: "Kuda Bank", Slug: "kuda-bank", Type: domain.BankTypeMicrofinance},
		{Code: "51310", Name: "Sparkle Microfinance Bank", Slug: "sparkle-microfinance-bank", Type: domain.BankTypeMicrofinance},
		{Code: "562", Name: "Ekondo Microfinance Bank", Slug: "ekondo-microfinance-bank", Type: domain.BankTypeMicrofinance},
		{Code: "327", Name: "Paga", Slug: "paga", Type: domain.BankTypePaymentService},
		{Code: "100004", Name: "OPay Digital Services", Slug: "paycom", Type: domain.BankTypePaymentService},
		{Code: "50515", Name: "Moniepoint MFB", Slug: "moniepoint-mfb-ng", Type: domain.BankTypeMerchant},
	}
}

func seedAccounts() map[string]string {
	return map[string]string{
		"058:0123456789":    "ADAEZE OKONKWO",
		"044:0011223344":    "TUNDE BAKARE",
		"057:2233445566":    "CAMPUS BOOKSHOP VENTURES",
		"50211:2012345678":  "IBRAHIM MUSA",
		"100004:8031234567": "CHIOMA NWOSU",
	}
}
