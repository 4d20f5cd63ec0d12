package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/eligibility"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/cache"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/logging"
	"github.com/SwiftFiat/SwiftFiat-Payouts/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type State string

const (
	StateIdle       State = "idle"
	StateVerifying  State = "verifying"
	StateVerified   State = "verified"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

var ErrClosed = errors.New("withdrawal session is closed")

// Gateway is the part of the withdrawal API the coordinator drives
type Gateway interface {
	GetLimits(ctx context.Context) (*domain.WithdrawalLimits, error)
	SubmitWithdrawal(ctx context.Context, req domain.WithdrawalRequest, idempotencyKey string) (*domain.WithdrawalRecord, error)
	GetHistory(ctx context.Context, page, perPage int, status *domain.WithdrawalStatus) (*domain.HistoryPage, error)
}

// AccountVerifier is satisfied by verification.Engine
type AccountVerifier interface {
	Verify(ctx context.Context, accountNumber, bankCode string) (*domain.VerifiedAccount, error)
	Invalidate() uint64
	Current(accountNumber, bankCode string) (*domain.VerifiedAccount, bool)
}

// Snapshot is a consistent copy of the coordinator for display
type Snapshot struct {
	State            State
	AccountNumber    string
	BankCode         string
	Amount           decimal.Decimal
	Verified         *domain.VerifiedAccount
	Limits           *domain.WithdrawalLimits
	Decision         *eligibility.Decision
	Err              error
	LastWithdrawalID string
	Attempt          int
	Submitting       bool
	CanSubmit        bool
	CanResubmit      bool
}

// Coordinator runs one withdrawal form. The mutex is never held across a
// gateway call; inFlight keeps a second submission out while one is running.
type Coordinator struct {
	gateway  Gateway
	verifier AccountVerifier
	cache    *cache.Cache
	logger   *logging.Logger
	newKey   func() string

	mu            sync.Mutex
	state         State
	accountNumber string
	bankCode      string
	amount        decimal.Decimal
	limits        *domain.WithdrawalLimits
	lastErr       error
	lastRecordID  string
	attempt       int
	inFlight      bool
	verifyGen     uint64
	closed        bool
}

func New(gateway Gateway, verifier AccountVerifier, c *cache.Cache, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Coordinator{
		gateway:  gateway,
		verifier: verifier,
		cache:    c,
		logger:   logger,
		newKey:   uuid.NewString,
		state:    StateIdle,
		amount:   decimal.Zero,
	}
}

// SetAccountNumber discards any verification before it returns
func (c *Coordinator) SetAccountNumber(accountNumber string) error {
	return c.setDestination(&c.accountNumber, strings.TrimSpace(accountNumber))
}

func (c *Coordinator) SetBankCode(bankCode string) error {
	return c.setDestination(&c.bankCode, strings.TrimSpace(bankCode))
}

func (c *Coordinator) setDestination(field *string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return err
	}
	if *field == value {
		return nil
	}

	*field = value
	c.verifyGen++
	c.verifier.Invalidate()
	c.state = StateIdle
	c.lastErr = nil
	return nil
}

// SetAmount keeps the verification. A terminal state moves back to Verified
// when the verification still matches, to Idle otherwise.
func (c *Coordinator) SetAmount(amount decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return err
	}
	if amount.Equal(c.amount) {
		return nil
	}

	c.amount = amount
	c.lastErr = nil
	if c.state == StateSucceeded || c.state == StateFailed {
		c.state = StateIdle
		if _, ok := c.verifier.Current(c.accountNumber, c.bankCode); ok {
			c.state = StateVerified
		}
	}
	return nil
}

// Verify resolves the current destination. A call overtaken by an edit or a
// newer Verify returns domain.ErrVerificationSuperseded and changes nothing.
func (c *Coordinator) Verify(ctx context.Context) (*domain.VerifiedAccount, error) {
	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.verifyGen++
	gen := c.verifyGen
	accountNumber, bankCode := c.accountNumber, c.bankCode
	c.state = StateVerifying
	c.lastErr = nil
	c.mu.Unlock()

	account, err := c.verifier.Verify(ctx, accountNumber, bankCode)

	c.mu.Lock()
	if c.verifyGen != gen || c.closed {
		c.mu.Unlock()
		return nil, domain.ErrVerificationSuperseded
	}
	if err != nil {
		c.state = StateIdle
		c.lastErr = err
		c.mu.Unlock()
		return nil, err
	}
	c.state = StateVerified
	c.mu.Unlock()

	// limits feed the eligibility preview, a failure here is not a verify failure
	limits, lerr := c.fetchLimits(ctx)
	c.mu.Lock()
	if c.verifyGen == gen {
		if lerr != nil {
			c.lastErr = lerr
		} else {
			c.limits = limits
		}
	}
	c.mu.Unlock()

	return account, nil
}

// Submit sends the verified withdrawal once
func (c *Coordinator) Submit(ctx context.Context) (*domain.WithdrawalRecord, error) {
	return c.submit(ctx, false)
}

// Resubmit is the explicit retry after a failure; it sends a new idempotency key
func (c *Coordinator) Resubmit(ctx context.Context) (*domain.WithdrawalRecord, error) {
	return c.submit(ctx, true)
}

func (c *Coordinator) submit(ctx context.Context, retry bool) (*domain.WithdrawalRecord, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.inFlight {
		c.mu.Unlock()
		return nil, domain.ErrSubmissionInFlight
	}
	if (retry && c.state != StateFailed) || (!retry && c.state != StateVerified) {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot submit while %s", domain.ErrInvalidTransition, state)
	}
	account, ok := c.verifier.Current(c.accountNumber, c.bankCode)
	if !ok {
		c.state = StateIdle
		c.lastErr = domain.ErrVerificationStale
		c.mu.Unlock()
		return nil, domain.ErrVerificationStale
	}
	amount := c.amount
	c.inFlight = true
	c.mu.Unlock()

	// eligibility is judged on limits fetched now, not on what the form saw
	limits, err := c.refreshLimits(ctx)
	if err != nil {
		c.mu.Lock()
		c.inFlight = false
		c.lastErr = err
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	c.limits = limits
	if err := eligibility.Evaluate(amount, *limits).Err(); err != nil {
		c.inFlight = false
		c.lastErr = err
		c.mu.Unlock()
		return nil, err
	}
	if !retry {
		c.attempt = 0
	}
	c.attempt++
	attempt := c.attempt
	c.state = StateSubmitting
	c.lastErr = nil
	c.mu.Unlock()

	key := c.newKey()
	log := c.logger.WithFields(logrus.Fields{
		"component":      "withdrawal_coordinator",
		"attempt":        attempt,
		"account_number": utils.MaskAccountNumber(account.AccountNumber),
		"bank_code":      account.BankCode,
		"amount":         amount.String(),
	})
	log.Info("submitting withdrawal")

	record, err := c.gateway.SubmitWithdrawal(ctx, domain.NewWithdrawalRequest(*account, amount), key)
	if err != nil {
		subErr := &domain.SubmissionError{Cause: err, Attempt: attempt}
		log.Warn(fmt.Sprintf("withdrawal submission failed: %v", err))

		c.mu.Lock()
		c.state = StateFailed
		c.lastErr = subErr
		c.inFlight = false
		c.mu.Unlock()
		return nil, subErr
	}

	refreshed, refetchErr := c.afterSuccess(ctx)
	if refetchErr != nil {
		// the keys are already invalidated, the next read goes to the server
		log.Warn(fmt.Sprintf("could not refresh limits or history: %v", refetchErr))
	}

	c.mu.Lock()
	// nil after a failed refetch; stale limits are never kept
	c.limits = refreshed
	c.verifyGen++
	c.verifier.Invalidate()
	c.accountNumber = ""
	c.bankCode = ""
	c.amount = decimal.Zero
	c.lastRecordID = record.ID
	c.attempt = 0
	c.state = StateSucceeded
	c.inFlight = false
	c.mu.Unlock()

	log.WithField("withdrawal_id", record.ID).Info("withdrawal submitted")
	return record, nil
}

// afterSuccess drops the queries a new withdrawal changes and loads limits and
// the first history page again before the form leaves Submitting
func (c *Coordinator) afterSuccess(ctx context.Context) (*domain.WithdrawalLimits, error) {
	c.cache.Invalidate(cache.KeyLimits)
	c.cache.InvalidatePrefix(cache.HistoryPrefix)

	var limits *domain.WithdrawalLimits
	var g errgroup.Group
	g.Go(func() error {
		var err error
		limits, err = c.fetchLimits(ctx)
		return err
	})
	g.Go(func() error {
		_, err := cache.Get(ctx, c.cache, cache.KeyHistoryFirstPage, func(ctx context.Context) (*domain.HistoryPage, error) {
			return c.gateway.GetHistory(ctx, 1, domain.DefaultHistoryPerPage, nil)
		})
		return err
	})
	err := g.Wait()
	return limits, err
}

// Limits returns the cached limits, loading them on a miss
func (c *Coordinator) Limits(ctx context.Context) (*domain.WithdrawalLimits, error) {
	limits, err := c.fetchLimits(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.limits = limits
	c.mu.Unlock()
	return limits, nil
}

func (c *Coordinator) fetchLimits(ctx context.Context) (*domain.WithdrawalLimits, error) {
	return cache.Get(ctx, c.cache, cache.KeyLimits, c.gateway.GetLimits)
}

func (c *Coordinator) refreshLimits(ctx context.Context) (*domain.WithdrawalLimits, error) {
	c.cache.Invalidate(cache.KeyLimits)
	return c.fetchLimits(ctx)
}

// Reset clears the form. It is refused while a submission is running.
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return err
	}
	c.clearLocked()
	return nil
}

// Close discards the verified account for good. A running submission is
// left to finish, its result is still reported to its caller.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLocked()
	c.closed = true
}

func (c *Coordinator) clearLocked() {
	c.verifyGen++
	c.verifier.Invalidate()
	c.accountNumber = ""
	c.bankCode = ""
	c.amount = decimal.Zero
	c.lastErr = nil
	c.attempt = 0
	if !c.inFlight {
		c.state = StateIdle
	}
}

func (c *Coordinator) editableLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.inFlight {
		return domain.ErrSubmissionInFlight
	}
	return nil
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:            c.state,
		AccountNumber:    c.accountNumber,
		BankCode:         c.bankCode,
		Amount:           c.amount,
		Err:              c.lastErr,
		LastWithdrawalID: c.lastRecordID,
		Attempt:          c.attempt,
		Submitting:       c.inFlight,
	}

	if account, ok := c.verifier.Current(c.accountNumber, c.bankCode); ok {
		s.Verified = account
	}
	if c.limits != nil {
		limits := *c.limits
		s.Limits = &limits
		decision := eligibility.Evaluate(c.amount, limits)
		s.Decision = &decision
	}

	ready := !c.closed && !c.inFlight && s.Verified != nil && s.Decision != nil && s.Decision.Eligible
	s.CanSubmit = ready && c.state == StateVerified
	s.CanResubmit = ready && c.state == StateFailed
	return s
}
