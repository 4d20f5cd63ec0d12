package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/logging"
	"github.com/SwiftFiat/SwiftFiat-Payouts/utils"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Verifier resolves an account name, normally the withdrawal gateway
type Verifier interface {
	VerifyAccount(ctx context.Context, accountNumber, bankCode string) (*domain.VerifiedAccount, error)
}

// BankLookup rejects bank codes the server does not know
type BankLookup interface {
	Lookup(ctx context.Context, code string) (domain.BankDescriptor, error)
}

type accountInput struct {
	AccountNumber string `validate:"required,len=10,number"`
	BankCode      string `validate:"required"`
}

// Engine keeps at most one verified account, bound to the exact pair that
// produced it. Every Verify or Invalidate starts a new generation and results
// from older generations are dropped.
type Engine struct {
	verifier Verifier
	banks    BankLookup
	validate *validator.Validate
	logger   *logging.Logger

	mu         sync.Mutex
	generation uint64
	current    *domain.VerifiedAccount
}

// NewEngine skips the bank check when banks is nil
func NewEngine(verifier Verifier, banks BankLookup, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Engine{
		verifier: verifier,
		banks:    banks,
		validate: validator.New(),
		logger:   logger,
	}
}

// ValidateInput checks the local preconditions without calling out
func (e *Engine) ValidateInput(accountNumber, bankCode string) error {
	err := e.validate.Struct(accountInput{
		AccountNumber: accountNumber,
		BankCode:      strings.TrimSpace(bankCode),
	})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "AccountNumber" {
				return domain.ErrInvalidAccountNumber
			}
		}
		return domain.ErrUnknownBank
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

func (e *Engine) Verify(ctx context.Context, accountNumber, bankCode string) (*domain.VerifiedAccount, error) {
	gen := e.Invalidate()

	if err := e.ValidateInput(accountNumber, bankCode); err != nil {
		return nil, err
	}

	if e.banks != nil {
		if _, err := e.banks.Lookup(ctx, bankCode); err != nil {
			return nil, err
		}
	}

	account, err := e.verifier.VerifyAccount(ctx, accountNumber, bankCode)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.generation != gen {
		e.log(accountNumber, bankCode).Debug("discarding superseded verification")
		return nil, domain.ErrVerificationSuperseded
	}
	if err != nil {
		return nil, err
	}
	if !account.Matches(accountNumber, bankCode) {
		return nil, fmt.Errorf("%w: resolved account does not match the request", domain.ErrValidation)
	}

	stored := *account
	e.current = &stored
	e.log(accountNumber, bankCode).Info("account verified")

	out := stored
	return &out, nil
}

// Invalidate clears the stored account and returns the new generation
func (e *Engine) Invalidate() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation++
	e.current = nil
	return e.generation
}

// Current returns the stored account only for the exact pair it was resolved for
func (e *Engine) Current(accountNumber, bankCode string) (*domain.VerifiedAccount, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.current.Matches(accountNumber, bankCode) {
		return nil, false
	}
	out := *e.current
	return &out, true
}

func (e *Engine) log(accountNumber, bankCode string) *logrus.Entry {
	return e.logger.WithFields(logrus.Fields{
		"component":      "account_verification",
		"account_number": utils.MaskAccountNumber(accountNumber),
		"bank_code":      bankCode,
	})
}
