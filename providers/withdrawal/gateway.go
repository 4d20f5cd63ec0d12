package withdrawal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/SwiftFiat/SwiftFiat-Payouts/models"
	"github.com/SwiftFiat/SwiftFiat-Payouts/providers"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/logging"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/session"
	"github.com/SwiftFiat/SwiftFiat-Payouts/utils"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	opListBanks   = "list_banks"
	opSearchBanks = "search_banks"
	opVerify      = "verify_account"
	opLimits      = "get_limits"
	opSubmit      = "submit_withdrawal"
	opStatus      = "get_status"
	opHistory     = "get_history"
	opStats       = "get_stats"

	IdempotencyHeader = "Idempotency-Key"

	maxResponseBytes = 1 << 20
)

type GatewayConfig struct {
	BaseURL       string
	VerifyTimeout time.Duration
	SubmitTimeout time.Duration
	ReadTimeout   time.Duration
	// ReadRetries bounds the extra attempts for idempotent reads
	ReadRetries          int
	RetryInitialInterval time.Duration
	HTTPClient           *http.Client
}

func GatewayConfigFrom(c *utils.Config) GatewayConfig {
	return GatewayConfig{
		BaseURL:       c.APIBaseURL,
		VerifyTimeout: c.VerifyTimeout,
		SubmitTimeout: c.SubmitTimeout,
		ReadTimeout:   c.ReadTimeout,
		ReadRetries:   c.ReadRetries,
	}
}

// Gateway is the typed client for the withdrawal REST API
type Gateway struct {
	providers.BaseProvider
	config GatewayConfig
}

var _ providers.Provider = (*Gateway)(nil)

func NewGateway(c GatewayConfig, sess session.Session, logger *logging.Logger) *Gateway {
	if c.VerifyTimeout <= 0 {
		c.VerifyTimeout = 30 * time.Second
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 30 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.RetryInitialInterval <= 0 {
		c.RetryInitialInterval = 250 * time.Millisecond
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}

	client := c.HTTPClient
	if client == nil {
		// per-call deadlines are set on the context, this is only a backstop
		client = &http.Client{Timeout: 45 * time.Second}
	}

	return &Gateway{
		BaseProvider: providers.BaseProvider{
			Name:    providers.CampusWithdrawals,
			BaseURL: c.BaseURL,
			Session: sess,
			Client:  client,
			Logger:  logger,
		},
		config: c,
	}
}

func (g *Gateway) ListBanks(ctx context.Context) (domain.BankCollection, error) {
	var banks BankCollection
	if err := g.read(ctx, opListBanks, "banks/", nil, &banks); err != nil {
		return nil, err
	}
	return banks.toDomain(), nil
}

func (g *Gateway) SearchBanks(ctx context.Context, query string) (domain.BankCollection, error) {
	params := url.Values{}
	params.Add("q", query)

	var banks BankCollection
	if err := g.read(ctx, opSearchBanks, "banks/search/", params, &banks); err != nil {
		return nil, err
	}
	return banks.toDomain(), nil
}

// VerifyAccount is not retried; the caller decides whether to ask again
func (g *Gateway) VerifyAccount(ctx context.Context, accountNumber, bankCode string) (*domain.VerifiedAccount, error) {
	request := VerifyAccountRequest{
		AccountNumber: accountNumber,
		BankCode:      bankCode,
	}

	var info AccountInfo
	if err := g.do(ctx, opVerify, http.MethodPost, "verify-account/", nil, request, nil, g.config.VerifyTimeout, &info); err != nil {
		return nil, err
	}

	if (info.AccountNumber != "" && info.AccountNumber != accountNumber) || (info.BankCode != "" && info.BankCode != bankCode) {
		return nil, domain.NewGatewayError(domain.ErrValidation, opVerify, http.StatusOK, "resolved account does not match the requested bank and account number", nil)
	}
	if strings.TrimSpace(info.AccountName) == "" {
		return nil, domain.NewGatewayError(domain.ErrValidation, opVerify, http.StatusOK, "account could not be resolved", nil)
	}

	return &domain.VerifiedAccount{
		AccountNumber: accountNumber,
		BankCode:      bankCode,
		AccountName:   info.AccountName,
		BankName:      info.BankName,
	}, nil
}

func (g *Gateway) GetLimits(ctx context.Context) (*domain.WithdrawalLimits, error) {
	var limits domain.WithdrawalLimits
	if err := g.read(ctx, opLimits, "limits/", nil, &limits); err != nil {
		return nil, err
	}
	return &limits, nil
}

// SubmitWithdrawal is sent exactly once per call. It is never retried here,
// a duplicate withdrawal is worse than a failed one.
func (g *Gateway) SubmitWithdrawal(ctx context.Context, req domain.WithdrawalRequest, idempotencyKey string) (*domain.WithdrawalRecord, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{IdempotencyHeader: idempotencyKey}
	}

	var record domain.WithdrawalRecord
	if err := g.do(ctx, opSubmit, http.MethodPost, "withdraw/", nil, toWithdrawRequest(req), headers, g.config.SubmitTimeout, &record); err != nil {
		return nil, err
	}
	if record.ID == "" {
		return nil, domain.NewGatewayError(domain.ErrNetwork, opSubmit, http.StatusOK, "acknowledgement carried no withdrawal id", nil)
	}
	return &record, nil
}

func (g *Gateway) GetStatus(ctx context.Context, id string) (*domain.WithdrawalRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewGatewayError(domain.ErrNotFound, opStatus, 0, "empty withdrawal id", nil)
	}

	var record domain.WithdrawalRecord
	if err := g.read(ctx, opStatus, "status/"+url.PathEscape(id)+"/", nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (g *Gateway) GetHistory(ctx context.Context, page, perPage int, status *domain.WithdrawalStatus) (*domain.HistoryPage, error) {
	params := url.Values{}
	params.Add("page", strconv.Itoa(page))
	params.Add("per_page", strconv.Itoa(perPage))
	if status != nil && *status != "" {
		params.Add("status", string(*status))
	}

	var history domain.HistoryPage
	if err := g.read(ctx, opHistory, "history/", params, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

func (g *Gateway) GetStats(ctx context.Context, periodDays int) (*domain.WithdrawalStats, error) {
	params := url.Values{}
	params.Add("period", strconv.Itoa(periodDays))

	var stats domain.WithdrawalStats
	if err := g.read(ctx, opStats, "stats/", params, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// read retries network failures with bounded exponential backoff
func (g *Gateway) read(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = g.config.RetryInitialInterval
	eb.MaxInterval = 8 * g.config.RetryInitialInterval
	eb.MaxElapsedTime = 0

	var b backoff.BackOff = backoff.WithMaxRetries(eb, uint64(g.config.ReadRetries))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := g.do(ctx, op, http.MethodGet, path, query, nil, nil, g.config.ReadTimeout, out)
		if err == nil {
			return nil
		}
		if !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		g.logFields(op).WithField("attempt", attempt).Warn(fmt.Sprintf("retrying read after: %v", err))
		return err
	}, b)

	if err == nil {
		return nil
	}

	var gErr *domain.GatewayError
	if errors.As(err, &gErr) {
		return err
	}
	// backoff hands back the context error once the caller gives up
	return domain.NewGatewayError(domain.ErrNetwork, op, 0, "request abandoned", err)
}

func (g *Gateway) do(ctx context.Context, op, method, path string, query url.Values, body interface{}, headers map[string]string, timeout time.Duration, out interface{}) error {
	endpoint, err := g.endpoint(path, query)
	if err != nil {
		return domain.NewGatewayError(domain.ErrNetwork, op, 0, "invalid endpoint", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := g.MakeRequest(ctx, method, endpoint, body, headers)
	if err != nil {
		return g.transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return g.transportError(ctx, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return g.statusError(ctx, op, resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.NewGatewayError(domain.ErrNetwork, op, resp.StatusCode, "error decoding response body", err)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return domain.NewGatewayError(domain.ErrNetwork, op, resp.StatusCode, "error decoding response data", err)
	}
	return nil
}

func (g *Gateway) endpoint(path string, query url.Values) (string, error) {
	base, err := url.Parse(g.BaseURL)
	if err != nil {
		return "", err
	}

	// Path params
	base.Path += path

	// Query params
	if query != nil {
		base.RawQuery = query.Encode()
	}
	return base.String(), nil
}

func (g *Gateway) transportError(ctx context.Context, op string, err error) error {
	var gErr *domain.GatewayError
	switch {
	case errors.Is(err, providers.ErrSessionToken):
		gErr = domain.NewGatewayError(domain.ErrAuth, op, 0, "", err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		gErr = domain.NewGatewayError(domain.ErrNetwork, op, 0, "request timed out", err)
	default:
		gErr = domain.NewGatewayError(domain.ErrNetwork, op, 0, "", err)
	}

	g.logFields(op).Warn(gErr.ErrorOut())
	return gErr
}

func (g *Gateway) statusError(ctx context.Context, op string, status int, raw []byte) error {
	var errResp models.ErrorResponse
	message := ""
	if err := json.Unmarshal(raw, &errResp); err == nil {
		message = errResp.Message
	}

	var kind error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = domain.ErrAuth
		// token refresh belongs to the session, not to this layer
		g.Session.Unauthorized(ctx)
	case status == http.StatusNotFound:
		kind = domain.ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		kind = domain.ErrValidation
	case status >= 500:
		kind = domain.ErrNetwork
	default:
		kind = domain.ErrBusinessRule
	}

	gErr := domain.NewGatewayError(kind, op, status, message, nil)
	gErr.Fields = errResp.Fields

	g.logFields(op).WithField("status", status).Warn(gErr.ErrorOut())
	return gErr
}

func (g *Gateway) logFields(op string) *logrus.Entry {
	if g.Logger == nil {
		return logging.NewDiscardLogger().WithField("op", op)
	}
	return g.Logger.WithFields(logrus.Fields{"component": "withdrawal_gateway", "op": op})
}
