package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/api"
	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/eligibility"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/logging"
	"github.com/SwiftFiat/SwiftFiat-Payouts/utils"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
)

func setupCLI(t *testing.T) *api.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger, err := api.NewLedger(api.DefaultWalletPolicy(), "cli")
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	server, err := api.NewServer(&utils.Config{SigningKey: "cli-key"}, ledger, logging.NewDiscardLogger())
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	token, err := server.IssueToken(42, api.RoleCustomer, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	t.Setenv("API_BASE_URL", ts.URL+"/api/v1/withdrawals/")
	t.Setenv("ACCESS_TOKEN", token)
	t.Setenv("REDIS_HOST", "")
	t.Setenv("PAPERTRAIL", "")
	return server
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer

	app := newCLI()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.RunContext(context.Background(), append([]string{"payouts", "--env", t.TempDir()}, args...))
	return out.String(), err
}

func TestWithdrawThenHistory(t *testing.T) {
	setupCLI(t)

	out, err := run(t, "withdraw", "--bank", "058", "--account", "0123456789", "--amount", "1500")
	if err != nil {
		t.Fatalf("withdraw: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ADAEZE OKONKWO") || !strings.Contains(out, "submitted for ₦1500.00") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "0123456789") {
		t.Fatalf("full account number printed:\n%s", out)
	}

	out, err = run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "******6789") || !strings.Contains(out, "page 1 of 1, 1 withdrawals") {
		t.Fatalf("unexpected history:\n%s", out)
	}
}

func TestLimitsAndBanks(t *testing.T) {
	setupCLI(t)

	out, err := run(t, "limits")
	if err != nil {
		t.Fatalf("limits: %v", err)
	}
	if !strings.Contains(out, "Balance") || !strings.Contains(out, "₦10000.00") {
		t.Fatalf("unexpected limits:\n%s", out)
	}

	out, err = run(t, "banks", "--search", "kuda")
	if err != nil {
		t.Fatalf("banks: %v", err)
	}
	if !strings.Contains(out, "50211") || strings.Contains(out, "Zenith") {
		t.Fatalf("unexpected banks:\n%s", out)
	}
}

func TestWithdrawOverBalanceIsRefused(t *testing.T) {
	server := setupCLI(t)

	out, err := run(t, "withdraw", "--bank", "058", "--account", "0123456789", "--amount", "20000")
	if err == nil {
		t.Fatalf("expected refusal, got:\n%s", out)
	}
	if page := server.Ledger().History(42, 1, 10, nil); page.Pagination.Total != 0 {
		t.Fatalf("expected nothing to be submitted, got %d", page.Pagination.Total)
	}
	if !strings.Contains(err.Error(), "WITHDRAWAL BLOCKED") || !strings.Contains(err.Error(), "Maximum withdrawal") {
		t.Fatalf("expected a blocking banner, got %q", err.Error())
	}
}

func TestDescribeErrorSeparatesBannersFromFieldErrors(t *testing.T) {
	serverRule := &domain.SubmissionError{
		Cause:   domain.NewGatewayError(domain.ErrBusinessRule, "submit_withdrawal", 409, "You already have a pending withdrawal", nil),
		Attempt: 1,
	}
	if err := describeError(serverRule); !strings.HasPrefix(err.Error(), "====") || !strings.Contains(err.Error(), "WITHDRAWAL BLOCKED") {
		t.Fatalf("expected a server refusal banner, got %q", err.Error())
	}

	local := eligibility.Decision{Reason: eligibility.ReasonDailyLimit, Message: "Daily limit exceeded. Remaining today: ₦1000.00"}.Err()
	if err := describeError(local); !strings.Contains(err.Error(), "WITHDRAWAL BLOCKED") {
		t.Fatalf("expected a local refusal banner, got %q", err.Error())
	}

	fields := domain.NewGatewayError(domain.ErrValidation, "submit_withdrawal", 422, "Invalid withdrawal request", nil)
	fields.Fields = map[string][]string{"account_number": {"must be 10 digits"}}
	err := describeError(&domain.SubmissionError{Cause: fields})
	if strings.Contains(err.Error(), "WITHDRAWAL BLOCKED") || !strings.Contains(err.Error(), "account_number: must be 10 digits") {
		t.Fatalf("expected inline field errors, got %q", err.Error())
	}

	invalid := eligibility.Decision{Reason: eligibility.ReasonInvalidAmount, Message: "Enter an amount greater than zero"}.Err()
	if err := describeError(invalid); strings.Contains(err.Error(), "WITHDRAWAL BLOCKED") {
		t.Fatalf("an invalid amount is not a banner, got %q", err.Error())
	}

	if exit, ok := describeError(domain.NewGatewayError(domain.ErrAuth, "get_limits", 401, "", nil)).(cli.ExitCoder); !ok || exit.ExitCode() != 3 {
		t.Fatalf("expected exit code 3 for auth errors")
	}
}
