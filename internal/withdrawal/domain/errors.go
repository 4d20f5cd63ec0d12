package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Gateway failure taxonomy. Every error leaving the gateway matches exactly one
// of these with errors.Is.
var (
	ErrNetwork      = errors.New("network error")
	ErrAuth         = errors.New("session expired or invalid")
	ErrValidation   = errors.New("request rejected by validation")
	ErrNotFound     = errors.New("withdrawal not found")
	ErrBusinessRule = errors.New("withdrawal not permitted")
)

// Client side precondition and workflow errors
var (
	ErrInvalidAccountNumber   = errors.New("account number must be exactly 10 digits")
	ErrUnknownBank            = errors.New("unknown bank code")
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrVerificationSuperseded = errors.New("verification result discarded, inputs changed")
	ErrVerificationStale      = errors.New("account verification missing or stale")
	ErrSubmissionInFlight     = errors.New("a withdrawal submission is already in progress")
	ErrInvalidTransition      = errors.New("action not allowed in current state")
)

// GatewayError carries the classified failure plus what the server said
type GatewayError struct {
	ErrorObj   error
	Op         string
	StatusCode int
	Message    string
	Fields     map[string][]string
	Cause      error
}

func (g *GatewayError) Error() string {
	if g.Message != "" {
		return fmt.Sprintf("%v: %v", g.ErrorObj.Error(), g.Message)
	}
	return g.ErrorObj.Error()
}

func (g *GatewayError) ErrorOut() string {
	out := fmt.Sprintf("%v [op=%v status=%d]", g.Error(), g.Op, g.StatusCode)
	if g.Cause != nil {
		out += fmt.Sprintf(": %v", g.Cause)
	}
	return out
}

func (g *GatewayError) Unwrap() []error {
	if g.Cause == nil {
		return []error{g.ErrorObj}
	}
	return []error{g.ErrorObj, g.Cause}
}

// FieldMessages flattens field errors for inline display, sorted by field
func (g *GatewayError) FieldMessages() []string {
	names := make([]string, 0, len(g.Fields))
	for name := range g.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		out = append(out, fmt.Sprintf("%s: %s", name, strings.Join(g.Fields[name], ", ")))
	}
	return out
}

func NewGatewayError(kind error, op string, status int, message string, cause error) *GatewayError {
	return &GatewayError{
		ErrorObj:   kind,
		Op:         op,
		StatusCode: status,
		Message:    message,
		Cause:      cause,
	}
}

// IsRetryable reports whether a read may be repeated
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// SubmissionError is what the user sees after a failed submit. A rejected
// request states that no money left the wallet; a request that may have
// reached the server sends the user to history before any resubmit.
type SubmissionError struct {
	Cause   error
	Attempt int
}

func (s *SubmissionError) Error() string {
	if s.Unconfirmed() {
		return fmt.Sprintf("withdrawal was not confirmed, check history or status before resubmitting: %v", s.Cause)
	}
	return fmt.Sprintf("withdrawal was not submitted, no funds were moved: %v", s.Cause)
}

func (s *SubmissionError) Unwrap() error {
	return s.Cause
}

// Blocking is true for business-rule failures shown as a banner rather than
// inline field errors
func (s *SubmissionError) Blocking() bool {
	return errors.Is(s.Cause, ErrBusinessRule)
}

// Unconfirmed is true when the request may have been accepted anyway, a
// timeout or a reply without a withdrawal id
func (s *SubmissionError) Unconfirmed() bool {
	return errors.Is(s.Cause, ErrNetwork)
}
