package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/utils"
)

var ErrNoToken = errors.New("no access token in session")

// Session is the authentication collaborator handed to the gateway. The
// gateway asks it for a bearer token and reports 401s back to it; refreshing
// is entirely the session's business.
type Session interface {
	Token(ctx context.Context) (string, error)
	Unauthorized(ctx context.Context)
}

// RefreshFunc is supplied by whoever owns the login flow
type RefreshFunc func(ctx context.Context) (string, error)

// TokenSession holds a bearer token and defers to RefreshFunc when the token
// has expired or the API rejected it.
type TokenSession struct {
	mu      sync.Mutex
	token   string
	stale   bool
	refresh RefreshFunc
	now     func() time.Time
}

func NewTokenSession(token string, refresh RefreshFunc) *TokenSession {
	return &TokenSession{
		token:   strings.TrimSpace(token),
		refresh: refresh,
		now:     time.Now,
	}
}

func (s *TokenSession) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.needsRefresh() && s.refresh != nil {
		token, err := s.refresh(ctx)
		if err != nil {
			return "", err
		}
		s.token = strings.TrimSpace(token)
		s.stale = false
	}

	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}

// Unauthorized marks the token stale so the next call goes through refresh
func (s *TokenSession) Unauthorized(ctx context.Context) {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

func (s *TokenSession) needsRefresh() bool {
	if s.stale || s.token == "" {
		return true
	}
	exp, err := utils.TokenExpiry(s.token)
	if err != nil {
		// opaque tokens are left to the server to judge
		return false
	}
	return !s.now().Before(exp)
}
