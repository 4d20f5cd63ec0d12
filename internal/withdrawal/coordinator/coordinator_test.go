package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/verification"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/cache"
	"github.com/shopspring/decimal"
)

type stubGateway struct {
	mu           sync.Mutex
	limits       domain.WithdrawalLimits
	limitsCalls  int
	historyCalls int
	submitErr    error
	started      chan struct{}
	release      chan struct{}
	keys         []string
	requests     []domain.WithdrawalRequest
}

func (s *stubGateway) GetLimits(ctx context.Context) (*domain.WithdrawalLimits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limitsCalls++
	limits := s.limits
	return &limits, nil
}

func (s *stubGateway) GetHistory(ctx context.Context, page, perPage int, status *domain.WithdrawalStatus) (*domain.HistoryPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyCalls++
	return &domain.HistoryPage{Pagination: domain.Pagination{Page: page, PerPage: perPage}}, nil
}

func (s *stubGateway) SubmitWithdrawal(ctx context.Context, req domain.WithdrawalRequest, key string) (*domain.WithdrawalRecord, error) {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	s.requests = append(s.requests, req)
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	s.limits.DailyUsed = s.limits.DailyUsed.Add(req.Amount)
	s.limits.WalletBalance = s.limits.WalletBalance.Sub(req.Amount)
	return &domain.WithdrawalRecord{ID: "wd_1", Amount: req.Amount, Status: domain.StatusPending}, nil
}

func (s *stubGateway) submits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type stubVerifier struct{}

func (stubVerifier) VerifyAccount(ctx context.Context, accountNumber, bankCode string) (*domain.VerifiedAccount, error) {
	return &domain.VerifiedAccount{
		AccountNumber: accountNumber,
		BankCode:      bankCode,
		AccountName:   "ADAEZE OKONKWO",
		BankName:      "Guaranty Trust Bank",
	}, nil
}

func openLimits() domain.WithdrawalLimits {
	return domain.WithdrawalLimits{
		WalletBalance: decimal.NewFromInt(10000),
		DailyLimit:    decimal.NewFromInt(5000),
		MonthlyLimit:  decimal.NewFromInt(50000),
		DailyUsed:     decimal.Zero,
		MonthlyUsed:   decimal.Zero,
		MinWithdrawal: decimal.NewFromInt(100),
		MaxWithdrawal: decimal.NewFromInt(5000),
		CanWithdraw:   true,
	}
}

func newVerified(t *testing.T, gw *stubGateway, amount int64) *Coordinator {
	t.Helper()

	c := New(gw, verification.NewEngine(stubVerifier{}, nil, nil), cache.New(time.Minute), nil)
	if err := c.SetBankCode("058"); err != nil {
		t.Fatalf("set bank: %v", err)
	}
	if err := c.SetAccountNumber("0123456789"); err != nil {
		t.Fatalf("set account: %v", err)
	}
	if err := c.SetAmount(decimal.NewFromInt(amount)); err != nil {
		t.Fatalf("set amount: %v", err)
	}
	if _, err := c.Verify(context.Background()); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if c.State() != StateVerified {
		t.Fatalf("expected verified, got %s", c.State())
	}
	return c
}

func TestEditDiscardsVerification(t *testing.T) {
	gw := &stubGateway{limits: openLimits()}
	c := newVerified(t, gw, 1500)

	if snap := c.Snapshot(); snap.Verified == nil || !snap.CanSubmit {
		t.Fatalf("expected a submittable verified form, got %+v", snap)
	}

	if err := c.SetAccountNumber("0123456780"); err != nil {
		t.Fatalf("set account: %v", err)
	}

	snap := c.Snapshot()
	if snap.Verified != nil || snap.State != StateIdle || snap.CanSubmit {
		t.Fatalf("expected verification to be gone, got %+v", snap)
	}
	if _, err := c.Submit(context.Background()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if gw.submits() != 0 {
		t.Fatal("no request may be sent without a verified account")
	}
}

func TestSubmitIsSingleFlight(t *testing.T) {
	gw := &stubGateway{
		limits:  openLimits(),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	c := newVerified(t, gw, 1500)

	done := make(chan error)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-gw.started

	if c.State() != StateSubmitting {
		t.Fatalf("expected submitting, got %s", c.State())
	}
	for i := 0; i < 3; i++ {
		if _, err := c.Submit(context.Background()); !errors.Is(err, domain.ErrSubmissionInFlight) {
			t.Fatalf("expected in-flight rejection, got %v", err)
		}
	}
	if err := c.SetAmount(decimal.NewFromInt(200)); !errors.Is(err, domain.ErrSubmissionInFlight) {
		t.Fatalf("expected inputs to be locked, got %v", err)
	}

	close(gw.release)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}
	if gw.submits() != 1 {
		t.Fatalf("expected exactly one request, got %d", gw.submits())
	}
}

func TestIneligibleAmountNeverSubmits(t *testing.T) {
	limits := openLimits()
	limits.HasPendingWithdrawal = true
	gw := &stubGateway{limits: limits}
	c := newVerified(t, gw, 1500)

	_, err := c.Submit(context.Background())
	if !errors.Is(err, domain.ErrBusinessRule) {
		t.Fatalf("expected business rule error, got %v", err)
	}
	if c.State() != StateVerified {
		t.Fatalf("expected to stay verified, got %s", c.State())
	}
	if gw.submits() != 0 {
		t.Fatal("an ineligible amount reached the gateway")
	}
}

func TestEligibilityUsesFreshLimits(t *testing.T) {
	gw := &stubGateway{limits: openLimits()}
	c := newVerified(t, gw, 1500)

	// another device used the daily allowance after the form loaded
	gw.mu.Lock()
	gw.limits.DailyUsed = decimal.NewFromInt(4000)
	gw.mu.Unlock()

	if _, err := c.Submit(context.Background()); !errors.Is(err, domain.ErrBusinessRule) {
		t.Fatalf("expected daily limit rejection, got %v", err)
	}
	if gw.submits() != 0 {
		t.Fatal("stale limits let the request through")
	}
}

func TestSuccessRefreshesLimitsAndClearsForm(t *testing.T) {
	gw := &stubGateway{limits: openLimits()}
	c := newVerified(t, gw, 3000)

	record, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap := c.Snapshot()
	if snap.State != StateSucceeded || snap.LastWithdrawalID != record.ID {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.AccountNumber != "" || snap.BankCode != "" || !snap.Amount.IsZero() || snap.Verified != nil {
		t.Fatalf("expected a cleared form, got %+v", snap)
	}
	if snap.Limits == nil || !snap.Limits.DailyUsed.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected refreshed limits with 3000 used, got %+v", snap.Limits)
	}

	gw.mu.Lock()
	historyCalls := gw.historyCalls
	gw.mu.Unlock()
	if historyCalls != 1 {
		t.Fatalf("expected the first history page to be refetched once, got %d", historyCalls)
	}

	if _, err := c.Submit(context.Background()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected no second submit from succeeded, got %v", err)
	}
}

func TestFailureKeepsInputsAndResubmitUsesNewKey(t *testing.T) {
	gw := &stubGateway{limits: openLimits(), submitErr: domain.NewGatewayError(domain.ErrNetwork, "submit_withdrawal", 502, "", nil)}
	c := newVerified(t, gw, 1500)

	_, err := c.Submit(context.Background())
	var subErr *domain.SubmissionError
	if !errors.As(err, &subErr) || !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected a network submission error, got %v", err)
	}
	if subErr.Attempt != 1 {
		t.Fatalf("expected attempt 1, got %d", subErr.Attempt)
	}

	snap := c.Snapshot()
	if snap.State != StateFailed || snap.AccountNumber != "0123456789" || snap.Verified == nil || !snap.CanResubmit {
		t.Fatalf("expected a failed form ready to resubmit, got %+v", snap)
	}

	if _, err := c.Submit(context.Background()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected Submit to be refused after a failure, got %v", err)
	}

	gw.mu.Lock()
	gw.submitErr = nil
	gw.mu.Unlock()

	if _, err := c.Resubmit(context.Background()); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	gw.mu.Lock()
	defer gw.mu.Unlock()
	if len(gw.keys) != 2 || gw.keys[0] == "" || gw.keys[0] == gw.keys[1] {
		t.Fatalf("expected two distinct idempotency keys, got %v", gw.keys)
	}
}

func TestAmountEditAfterFailureReturnsToVerified(t *testing.T) {
	gw := &stubGateway{limits: openLimits(), submitErr: domain.ErrBusinessRule}
	c := newVerified(t, gw, 1500)

	if _, err := c.Submit(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	if err := c.SetAmount(decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("set amount: %v", err)
	}
	if c.State() != StateVerified {
		t.Fatalf("expected verified, got %s", c.State())
	}
}

func TestCloseDiscardsVerification(t *testing.T) {
	gw := &stubGateway{limits: openLimits()}
	engine := verification.NewEngine(stubVerifier{}, nil, nil)
	c := New(gw, engine, cache.New(time.Minute), nil)

	_ = c.SetBankCode("058")
	_ = c.SetAccountNumber("0123456789")
	if _, err := c.Verify(context.Background()); err != nil {
		t.Fatalf("verify: %v", err)
	}

	c.Close()

	if _, ok := engine.Current("0123456789", "058"); ok {
		t.Fatal("expected verification to be discarded on close")
	}
	if _, err := c.Submit(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := c.SetAmount(decimal.NewFromInt(100)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

// slowVerifier blocks inside Verify and keeps whatever it resolved last; it
// never invalidates on its own, so only the coordinator can discard a result
type slowVerifier struct {
	started chan struct{}
	release chan struct{}

	mu   sync.Mutex
	last *domain.VerifiedAccount
}

func (v *slowVerifier) Verify(ctx context.Context, accountNumber, bankCode string) (*domain.VerifiedAccount, error) {
	v.started <- struct{}{}
	<-v.release

	account, _ := stubVerifier{}.VerifyAccount(ctx, accountNumber, bankCode)
	v.mu.Lock()
	v.last = account
	v.mu.Unlock()
	return account, nil
}

func (v *slowVerifier) Invalidate() uint64 { return 0 }

func (v *slowVerifier) Current(accountNumber, bankCode string) (*domain.VerifiedAccount, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.last == nil || !v.last.Matches(accountNumber, bankCode) {
		return nil, false
	}
	return v.last, true
}

func TestEditDuringVerifyDiscardsResult(t *testing.T) {
	gw := &stubGateway{limits: openLimits()}
	verifier := &slowVerifier{started: make(chan struct{}), release: make(chan struct{})}
	c := New(gw, verifier, cache.New(time.Minute), nil)

	_ = c.SetBankCode("058")
	_ = c.SetAccountNumber("0123456789")
	_ = c.SetAmount(decimal.NewFromInt(1500))

	done := make(chan error)
	go func() {
		_, err := c.Verify(context.Background())
		done <- err
	}()
	<-verifier.started

	if err := c.SetAccountNumber("9876543210"); err != nil {
		t.Fatalf("edit during verify: %v", err)
	}
	close(verifier.release)

	if err := <-done; !errors.Is(err, domain.ErrVerificationSuperseded) {
		t.Fatalf("expected the late result to be discarded, got %v", err)
	}

	snap := c.Snapshot()
	if snap.State != StateIdle || snap.Verified != nil || snap.CanSubmit {
		t.Fatalf("expected an unverified form, got %+v", snap)
	}
	if _, err := c.Submit(context.Background()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected submit to be refused, got %v", err)
	}
	if gw.submits() != 0 {
		t.Fatalf("expected no request, got %d", gw.submits())
	}
}
