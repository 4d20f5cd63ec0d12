package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/SwiftFiat/SwiftFiat-Payouts/models"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/logging"
	"github.com/SwiftFiat/SwiftFiat-Payouts/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type envelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Fields  map[string][]string `json:"fields"`
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger, err := NewLedger(DefaultWalletPolicy(), "test-salt")
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	server, err := NewServer(&utils.Config{SigningKey: "test-signing-key"}, ledger, logging.NewDiscardLogger())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	token, err := server.IssueToken(7, RoleCustomer, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return server, token
}

func call(t *testing.T, s *Server, token, method, path string, body interface{}, headers map[string]string) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, env
}

func TestRoutesRequireBearerToken(t *testing.T) {
	s, _ := newTestServer(t)

	code, _ := call(t, s, "", http.MethodGet, "/api/v1/withdrawals/limits/", nil, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}

	code, _ = call(t, s, "not-a-jwt", http.MethodGet, "/api/v1/withdrawals/limits/", nil, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", code)
	}
}

func TestVerifyAccountResolvesSeededAccount(t *testing.T) {
	s, token := newTestServer(t)

	code, env := call(t, s, token, http.MethodPost, "/api/v1/withdrawals/verify-account/", map[string]string{
		"account_number": "0123456789",
		"bank_code":      "058",
	}, nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", code, env.Message)
	}

	var account domain.VerifiedAccount
	if err := json.Unmarshal(env.Data, &account); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if account.AccountName != "ADAEZE OKONKWO" || account.BankName != "Guaranty Trust Bank" {
		t.Fatalf("unexpected account %+v", account)
	}
}

func TestVerifyAccountReportsFieldErrors(t *testing.T) {
	s, token := newTestServer(t)

	code, env := call(t, s, token, http.MethodPost, "/api/v1/withdrawals/verify-account/", map[string]string{
		"account_number": "12345",
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if len(env.Fields["account_number"]) == 0 || len(env.Fields["bank_code"]) == 0 {
		t.Fatalf("expected field errors for account_number and bank_code, got %v", env.Fields)
	}

	code, env = call(t, s, token, http.MethodPost, "/api/v1/withdrawals/verify-account/", map[string]string{
		"account_number": "9999999999",
		"bank_code":      "058",
	}, nil)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for an unknown account, got %d", code)
	}
	if len(env.Fields["account_number"]) == 0 {
		t.Fatalf("expected account_number field error, got %v", env.Fields)
	}
}

func TestWithdrawUpdatesLimitsAndReplaysIdempotencyKey(t *testing.T) {
	s, token := newTestServer(t)
	body := map[string]interface{}{
		"amount":         3000,
		"bank_code":      "058",
		"account_number": "0123456789",
	}
	headers := map[string]string{"Idempotency-Key": "key-1"}

	code, env := call(t, s, token, http.MethodPost, "/api/v1/withdrawals/withdraw/", body, headers)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", code, env.Message)
	}
	var first domain.WithdrawalRecord
	if err := json.Unmarshal(env.Data, &first); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if first.ID == "" || first.Status != domain.StatusPending {
		t.Fatalf("unexpected record %+v", first)
	}

	code, env = call(t, s, token, http.MethodPost, "/api/v1/withdrawals/withdraw/", body, headers)
	if code != http.StatusOK {
		t.Fatalf("expected replay to answer 200, got %d", code)
	}
	var replay domain.WithdrawalRecord
	if err := json.Unmarshal(env.Data, &replay); err != nil {
		t.Fatalf("decode replay: %v", err)
	}
	if replay.ID != first.ID {
		t.Fatalf("expected replay of %s, got %s", first.ID, replay.ID)
	}

	code, env = call(t, s, token, http.MethodGet, "/api/v1/withdrawals/limits/", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var limits domain.WithdrawalLimits
	if err := json.Unmarshal(env.Data, &limits); err != nil {
		t.Fatalf("decode limits: %v", err)
	}
	if !limits.DailyUsed.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected daily used 3000, got %s", limits.DailyUsed)
	}
	if !limits.WalletBalance.Equal(decimal.NewFromInt(7000)) {
		t.Fatalf("expected balance 7000, got %s", limits.WalletBalance)
	}
	if !limits.HasPendingWithdrawal || limits.CanWithdraw {
		t.Fatalf("expected a pending withdrawal to block new ones, got %+v", limits)
	}
}

func TestWithdrawRejectsBusinessRules(t *testing.T) {
	s, token := newTestServer(t)

	tests := []struct {
		name   string
		amount int
		want   string
	}{
		{name: "below minimum", amount: 50, want: "amount is below the minimum withdrawal"},
		{name: "above maximum", amount: 6000, want: "amount is above the maximum withdrawal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := call(t, s, token, http.MethodPost, "/api/v1/withdrawals/withdraw/", map[string]interface{}{
				"amount":         tt.amount,
				"bank_code":      "058",
				"account_number": "0123456789",
			}, nil)
			if code != http.StatusConflict {
				t.Fatalf("expected 409, got %d", code)
			}
			if env.Message != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, env.Message)
			}
		})
	}
}

func TestStatusIsScopedToOwner(t *testing.T) {
	s, token := newTestServer(t)

	record, _, err := s.Ledger().Withdraw(7, domain.WithdrawalRequest{
		Amount:        decimal.NewFromInt(1500),
		BankCode:      "058",
		AccountNumber: "0123456789",
	}, "")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	code, _ := call(t, s, token, http.MethodGet, "/api/v1/withdrawals/status/"+record.ID+"/", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("expected owner to read status, got %d", code)
	}

	other, err := s.IssueToken(8, RoleCustomer, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	code, _ = call(t, s, other, http.MethodGet, "/api/v1/withdrawals/status/"+record.ID+"/", nil, nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user, got %d", code)
	}
}

func TestSettleRequiresAdmin(t *testing.T) {
	s, token := newTestServer(t)

	record, _, err := s.Ledger().Withdraw(7, domain.WithdrawalRequest{
		Amount:        decimal.NewFromInt(1500),
		BankCode:      "058",
		AccountNumber: "0123456789",
	}, "")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	path := "/api/v1/withdrawals/status/" + record.ID + "/settle/"
	code, _ := call(t, s, token, http.MethodPost, path, map[string]string{"status": "completed"}, nil)
	if code != http.StatusForbidden {
		t.Fatalf("expected 403 for a customer, got %d", code)
	}

	admin, err := s.IssueToken(1, RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	code, env := call(t, s, admin, http.MethodPost, path, map[string]string{"status": "completed"}, nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", code, env.Message)
	}

	code, _ = call(t, s, admin, http.MethodPost, path, map[string]string{"status": "failed"}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected terminal withdrawal to stay put, got %d", code)
	}
}

func TestHistoryValidatesQuery(t *testing.T) {
	s, token := newTestServer(t)

	code, env := call(t, s, token, http.MethodGet, "/api/v1/withdrawals/history/?status=lost", nil, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if len(env.Fields["status"]) == 0 {
		t.Fatalf("expected status field error, got %v", env.Fields)
	}

	code, env = call(t, s, token, http.MethodGet, "/api/v1/withdrawals/history/", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var page domain.HistoryPage
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Pagination.Page != 1 || page.Pagination.PerPage != 10 || len(page.Records) != 0 {
		t.Fatalf("unexpected empty page %+v", page)
	}
}

func TestErrorEnvelopeCarriesRevision(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/withdrawals/banks/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Version != utils.REVISION || resp.Status != "failed" {
		t.Fatalf("unexpected error envelope %+v", resp)
	}
}

func TestSearchBanksRoute(t *testing.T) {
	s, token := newTestServer(t)

	code, env := call(t, s, token, http.MethodGet, "/api/v1/withdrawals/banks/search/?q=MONIE", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var banks domain.BankCollection
	if err := json.Unmarshal(env.Data, &banks); err != nil {
		t.Fatalf("decode banks: %v", err)
	}
	if len(banks) != 1 || banks[0].Code != "50515" {
		t.Fatalf("unexpected banks %+v", banks)
	}

	code, env = call(t, s, token, http.MethodGet, "/api/v1/withdrawals/banks/search/", nil, nil)
	if code != http.StatusBadRequest || len(env.Fields["q"]) == 0 {
		t.Fatalf("expected a field error for q, got %d %+v", code, env)
	}
}
