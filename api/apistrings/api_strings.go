package apistrings

const (
	/// Bank Related Strings
	BanksFetched          = "Banks Fetched Successfully"
	InvalidBankQuery      = "please enter a bank name to search for"
	InvalidAccountInput   = "check 'account_number' or 'bank_code' keys, invalid request"
	UnknownBank           = "bank code is not supported"
	AccountNotResolved    = "could not resolve account name, check the account number and bank"
	AccountResolved       = "Account Resolved Successfully"
	LimitsFetched         = "Withdrawal Limits Fetched Successfully"
	InvalidWithdrawInput  = "check 'amount', 'bank_code' or 'account_number' keys, invalid request"
	PendingWithdrawal     = "you already have a withdrawal in progress, wait for it to complete"
	AmountBelowMinimum    = "amount is below the minimum withdrawal"
	AmountAboveMaximum    = "amount is above the maximum withdrawal"
	InsufficientFunds     = "insufficient wallet balance"
	DailyLimitExceeded    = "amount exceeds your daily withdrawal limit"
	MonthlyLimitExceeded  = "amount exceeds your monthly withdrawal limit"
	WithdrawalsDisabled   = "withdrawals are currently disabled for this wallet"
	WithdrawalCreated     = "Withdrawal Initiated Successfully"
	WithdrawalNotFound    = "withdrawal not found"
	WithdrawalFetched     = "Withdrawal Fetched Successfully"
	HistoryFetched        = "Withdrawal History Fetched Successfully"
	InvalidHistoryQuery   = "check 'page', 'per_page' or 'status' query params, invalid request"
	StatsFetched          = "Withdrawal Statistics Fetched Successfully"
	InvalidStatsQuery     = "check 'period' query param, invalid request"
	InvalidSettlementData = "check 'status' key, invalid request"
	SettlementApplied     = "Withdrawal Settled Successfully"
	IdempotencyReplayed   = "Withdrawal Already Initiated"
)
