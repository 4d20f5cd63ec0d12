package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/logging"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/session"
	"github.com/sirupsen/logrus"
)

const (
	CampusWithdrawals = "CAMPUS_WITHDRAWALS"
)

var ErrSessionToken = errors.New("could not obtain session token")

// BaseProvider contains common fields and methods
type BaseProvider struct {
	Name    string
	BaseURL string
	Session session.Session
	Client  *http.Client
	Logger  *logging.Logger
}

// Request Processing. The body is never logged, it may carry account numbers.
func (p *BaseProvider) MakeRequest(ctx context.Context, method, url string, body interface{}, extraHeaders map[string]string) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("could not encode request body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, err
	}

	token, err := p.Session.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionToken, err)
	}

	// Set headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	// Allows for overwriting pre-set keys
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	if p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"provider": p.Name,
			"method":   method,
			"url":      req.URL.Path,
		}).Debug("External Request")
	}

	// Make the request
	return p.Client.Do(req)
}

// Provider is an interface that all specific providers must implement
type Provider interface {
	GetName() string
	GetBaseURL() string
	GetClient() *http.Client
}

// Implement the Provider interface methods for BaseProvider
func (bp *BaseProvider) GetName() string         { return bp.Name }
func (bp *BaseProvider) GetBaseURL() string      { return bp.BaseURL }
func (bp *BaseProvider) GetClient() *http.Client { return bp.Client }
