package api

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/api/apistrings"
	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/shopspring/decimal"
	"github.com/speps/go-hashids/v2"
)

var (
	ErrWithdrawalNotFound = errors.New(apistrings.WithdrawalNotFound)
	ErrUnknownBank        = errors.New(apistrings.UnknownBank)
	ErrAccountUnresolved  = errors.New(apistrings.AccountNotResolved)
	ErrInvalidSettlement  = errors.New(apistrings.InvalidSettlementData)
)

// RuleError is a business rule rejection, answered with 409
type RuleError struct {
	Message string
}

func (r *RuleError) Error() string {
	return r.Message
}

// WalletPolicy seeds every wallet the ledger opens
type WalletPolicy struct {
	OpeningBalance decimal.Decimal
	DailyLimit     decimal.Decimal
	MonthlyLimit   decimal.Decimal
	MinWithdrawal  decimal.Decimal
	MaxWithdrawal  decimal.Decimal
	Fee            decimal.Decimal
}

func DefaultWalletPolicy() WalletPolicy {
	return WalletPolicy{
		OpeningBalance: decimal.NewFromInt(10000),
		DailyLimit:     decimal.NewFromInt(5000),
		MonthlyLimit:   decimal.NewFromInt(50000),
		MinWithdrawal:  decimal.NewFromInt(100),
		MaxWithdrawal:  decimal.NewFromInt(5000),
		Fee:            decimal.Zero,
	}
}

type wallet struct {
	balance  decimal.Decimal
	disabled bool
}

type withdrawalEntry struct {
	seq            int64
	userID         int64
	idempotencyKey string
	record         domain.WithdrawalRecord
}

// Ledger is the in-memory book keeping behind the mock withdrawal API
type Ledger struct {
	mu          sync.Mutex
	policy      WalletPolicy
	banks       domain.BankCollection
	accounts    map[string]string // bankCode:accountNumber -> account name
	wallets     map[int64]*wallet
	withdrawals []*withdrawalEntry
	idempotency map[string]*withdrawalEntry
	seq         int64
	ids         *hashids.HashID
	now         func() time.Time
}

func NewLedger(policy WalletPolicy, salt string) (*Ledger, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = 12
	ids, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("could not set up withdrawal ids: %w", err)
	}

	return &Ledger{
		policy:      policy,
		banks:       seedBanks(),
		accounts:    seedAccounts(),
		wallets:     make(map[int64]*wallet),
		idempotency: make(map[string]*withdrawalEntry),
		ids:         ids,
		now:         time.Now,
	}, nil
}

// SetClock is used by tests to pin "today"
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

func (l *Ledger) RegisterAccount(bankCode, accountNumber, accountName string) {
	l.mu.Lock()
	l.accounts[bankCode+":"+accountNumber] = accountName
	l.mu.Unlock()
}

func (l *Ledger) SetBalance(userID int64, balance decimal.Decimal) {
	l.mu.Lock()
	l.walletFor(userID).balance = balance
	l.mu.Unlock()
}

func (l *Ledger) DisableWithdrawals(userID int64, disabled bool) {
	l.mu.Lock()
	l.walletFor(userID).disabled = disabled
	l.mu.Unlock()
}

func (l *Ledger) Banks() domain.BankCollection {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.banks.Sorted()
}

func (l *Ledger) bank(code string) (domain.BankDescriptor, bool) {
	for _, b := range l.banks {
		if b.Code == code {
			return b, true
		}
	}
	return domain.BankDescriptor{}, false
}

func (l *Ledger) ResolveAccount(accountNumber, bankCode string) (*domain.VerifiedAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bank, ok := l.bank(bankCode)
	if !ok {
		return nil, ErrUnknownBank
	}
	name, ok := l.accounts[bankCode+":"+accountNumber]
	if !ok {
		return nil, ErrAccountUnresolved
	}
	return &domain.VerifiedAccount{
		AccountNumber: accountNumber,
		BankCode:      bankCode,
		AccountName:   name,
		BankName:      bank.Name,
	}, nil
}

func (l *Ledger) Limits(userID int64) domain.WithdrawalLimits {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limitsLocked(userID)
}

func (l *Ledger) limitsLocked(userID int64) domain.WithdrawalLimits {
	w := l.walletFor(userID)
	dailyUsed, monthlyUsed := l.usageLocked(userID)
	pending := l.hasPendingLocked(userID)

	return domain.WithdrawalLimits{
		WalletBalance:        w.balance,
		DailyLimit:           l.policy.DailyLimit,
		MonthlyLimit:         l.policy.MonthlyLimit,
		DailyUsed:            dailyUsed,
		MonthlyUsed:          monthlyUsed,
		MinWithdrawal:        l.policy.MinWithdrawal,
		MaxWithdrawal:        l.policy.MaxWithdrawal,
		CanWithdraw:          !w.disabled && !pending && w.balance.GreaterThanOrEqual(l.policy.MinWithdrawal),
		HasPendingWithdrawal: pending,
	}
}

// Withdraw applies the authoritative checks and opens a pending withdrawal.
// A repeated idempotency key returns the original withdrawal.
func (l *Ledger) Withdraw(userID int64, req domain.WithdrawalRequest, idempotencyKey string) (*domain.WithdrawalRecord, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if idempotencyKey != "" {
		if entry, ok := l.idempotency[l.idempotencyScope(userID, idempotencyKey)]; ok {
			record := entry.record
			return &record, false, nil
		}
	}

	bank, ok := l.bank(req.BankCode)
	if !ok {
		return nil, false, ErrUnknownBank
	}
	name, ok := l.accounts[req.BankCode+":"+req.AccountNumber]
	if !ok {
		return nil, false, ErrAccountUnresolved
	}

	limits := l.limitsLocked(userID)
	switch {
	case limits.HasPendingWithdrawal:
		return nil, false, &RuleError{apistrings.PendingWithdrawal}
	case req.Amount.LessThan(limits.MinWithdrawal):
		return nil, false, &RuleError{apistrings.AmountBelowMinimum}
	case req.Amount.GreaterThan(limits.MaxWithdrawal):
		return nil, false, &RuleError{apistrings.AmountAboveMaximum}
	case req.Amount.GreaterThan(limits.WalletBalance):
		return nil, false, &RuleError{apistrings.InsufficientFunds}
	case limits.DailyUsed.Add(req.Amount).GreaterThan(limits.DailyLimit):
		return nil, false, &RuleError{apistrings.DailyLimitExceeded}
	case limits.MonthlyUsed.Add(req.Amount).GreaterThan(limits.MonthlyLimit):
		return nil, false, &RuleError{apistrings.MonthlyLimitExceeded}
	case !limits.CanWithdraw:
		return nil, false, &RuleError{apistrings.WithdrawalsDisabled}
	}

	l.seq++
	id, err := l.ids.EncodeInt64([]int64{l.seq})
	if err != nil {
		return nil, false, fmt.Errorf("could not encode withdrawal id: %w", err)
	}

	w := l.walletFor(userID)
	w.balance = w.balance.Sub(req.Amount)

	entry := &withdrawalEntry{
		seq:            l.seq,
		userID:         userID,
		idempotencyKey: idempotencyKey,
		record: domain.WithdrawalRecord{
			ID:            id,
			Amount:        req.Amount,
			FinalAmount:   req.Amount.Sub(l.policy.Fee),
			Status:        domain.StatusPending,
			BankName:      bank.Name,
			AccountNumber: req.AccountNumber,
			AccountName:   name,
			CreatedAt:     l.now(),
		},
	}
	l.withdrawals = append(l.withdrawals, entry)
	if idempotencyKey != "" {
		l.idempotency[l.idempotencyScope(userID, idempotencyKey)] = entry
	}

	record := entry.record
	return &record, true, nil
}

// Settle moves a withdrawal along its lifecycle, the way the payout processor
// would. Terminal withdrawals never move again; failed and cancelled ones are
// refunded.
func (l *Ledger) Settle(id string, status domain.WithdrawalStatus, reason string) (*domain.WithdrawalRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.findLocked(id)
	if err != nil {
		return nil, err
	}

	current := entry.record.Status
	if current.IsTerminal() || !domain.IsStatusValid(string(status)) || status == domain.StatusPending {
		return nil, ErrInvalidSettlement
	}

	now := l.now()
	entry.record.Status = status
	switch status {
	case domain.StatusProcessing:
		ref := fmt.Sprintf("PSK_%s", entry.record.ID)
		entry.record.PaystackReference = &ref
		entry.record.ProcessedAt = &now
	case domain.StatusCompleted:
		if entry.record.ProcessedAt == nil {
			entry.record.ProcessedAt = &now
		}
		entry.record.CompletedAt = &now
	case domain.StatusFailed, domain.StatusCancelled:
		if reason != "" {
			entry.record.FailureReason = &reason
		}
		w := l.walletFor(entry.userID)
		w.balance = w.balance.Add(entry.record.Amount)
	}

	record := entry.record
	return &record, nil
}

func (l *Ledger) Get(userID int64, id string) (*domain.WithdrawalRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.findLocked(id)
	if err != nil || entry.userID != userID {
		return nil, ErrWithdrawalNotFound
	}
	record := entry.record
	return &record, nil
}

// History is newest first with plain offset pagination
func (l *Ledger) History(userID int64, page, perPage int, status *domain.WithdrawalStatus) domain.HistoryPage {
	l.mu.Lock()
	defer l.mu.Unlock()

	var matching []domain.WithdrawalRecord
	for i := len(l.withdrawals) - 1; i >= 0; i-- {
		entry := l.withdrawals[i]
		if entry.userID != userID {
			continue
		}
		if status != nil && entry.record.Status != *status {
			continue
		}
		matching = append(matching, entry.record)
	}

	total := len(matching)
	totalPages := (total + perPage - 1) / perPage
	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	records := make([]domain.WithdrawalRecord, 0, end-start)
	records = append(records, matching[start:end]...)

	return domain.HistoryPage{
		Records: records,
		Pagination: domain.Pagination{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}
}

func (l *Ledger) Stats(userID int64, periodDays int) domain.WithdrawalStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	since := l.now().AddDate(0, 0, -periodDays)
	stats := domain.WithdrawalStats{
		PeriodDays:  periodDays,
		TotalAmount: decimal.Zero,
		SuccessRate: decimal.Zero,
	}
	months := map[string]*domain.MonthlyStat{}

	for _, entry := range l.withdrawals {
		if entry.userID != userID || entry.record.CreatedAt.Before(since) {
			continue
		}
		switch entry.record.Status {
		case domain.StatusCompleted:
			stats.SuccessCount++
			stats.TotalAmount = stats.TotalAmount.Add(entry.record.Amount)
			month := entry.record.CreatedAt.Format("2006-01")
			m, ok := months[month]
			if !ok {
				m = &domain.MonthlyStat{Month: month, TotalAmount: decimal.Zero}
				months[month] = m
			}
			m.Count++
			m.TotalAmount = m.TotalAmount.Add(entry.record.Amount)
		case domain.StatusFailed, domain.StatusCancelled:
			stats.FailedCount++
		default:
			stats.PendingCount++
		}
	}

	if settled := stats.SuccessCount + stats.FailedCount; settled > 0 {
		stats.SuccessRate = decimal.NewFromInt(int64(stats.SuccessCount)).
			Div(decimal.NewFromInt(int64(settled))).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	for _, m := range months {
		stats.MonthlyBreakdown = append(stats.MonthlyBreakdown, *m)
	}
	sort.Slice(stats.MonthlyBreakdown, func(i, j int) bool {
		return stats.MonthlyBreakdown[i].Month < stats.MonthlyBreakdown[j].Month
	})

	return stats
}

func (l *Ledger) findLocked(id string) (*withdrawalEntry, error) {
	decoded, err := l.ids.DecodeInt64WithError(id)
	if err != nil || len(decoded) != 1 {
		return nil, ErrWithdrawalNotFound
	}
	for _, entry := range l.withdrawals {
		if entry.seq == decoded[0] {
			return entry, nil
		}
	}
	return nil, ErrWithdrawalNotFound
}

// usageLocked counts every withdrawal that still holds funds or paid out
func (l *Ledger) usageLocked(userID int64) (decimal.Decimal, decimal.Decimal) {
	now := l.now()
	daily, monthly := decimal.Zero, decimal.Zero
	for _, entry := range l.withdrawals {
		if entry.userID != userID {
			continue
		}
		if entry.record.Status == domain.StatusFailed || entry.record.Status == domain.StatusCancelled {
			continue
		}
		created := entry.record.CreatedAt
		if created.Year() == now.Year() && created.Month() == now.Month() {
			monthly = monthly.Add(entry.record.Amount)
			if created.Day() == now.Day() {
				daily = daily.Add(entry.record.Amount)
			}
		}
	}
	return daily, monthly
}

func (l *Ledger) hasPendingLocked(userID int64) bool {
	for _, entry := range l.withdrawals {
		if entry.userID == userID && !entry.record.Status.IsTerminal() {
			return true
		}
	}
	return false
}

func (l *Ledger) walletFor(userID int64) *wallet {
	w, ok := l.wallets[userID]
	if !ok {
		w = &wallet{balance: l.policy.OpeningBalance}
		l.wallets[userID] = w
	}
	return w
}

func (l *Ledger) idempotencyScope(userID int64, key string) string {
	return fmt.Sprintf("%d:%s", userID, key)
}
