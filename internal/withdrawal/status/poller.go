package status

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/logging"
	"github.com/sirupsen/logrus"
)

const MinInterval = time.Second

// Source looks a withdrawal up by id, normally the withdrawal gateway
type Source interface {
	GetStatus(ctx context.Context, id string) (*domain.WithdrawalRecord, error)
}

// Checker does stateless point lookups; it keeps nothing between calls
type Checker struct {
	source Source
	logger *logging.Logger
}

func NewChecker(source Source, logger *logging.Logger) *Checker {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Checker{source: source, logger: logger}
}

// CheckStatus returns domain.ErrNotFound for ids the server does not know
func (c *Checker) CheckStatus(ctx context.Context, id string) (*domain.WithdrawalRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty withdrawal id", domain.ErrNotFound)
	}

	record, err := c.source.GetStatus(ctx, id)
	if err != nil {
		c.log(id).Debug(fmt.Sprintf("status lookup failed: %v", err))
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	c.log(id).WithField("status", record.Status).Debug("status checked")
	return record, nil
}

// StatusChecker is what Watch polls; *Checker satisfies it
type StatusChecker interface {
	CheckStatus(ctx context.Context, id string) (*domain.WithdrawalRecord, error)
}

// Update is one observation made by Watch. Exactly one of Record and Err is set.
type Update struct {
	Record *domain.WithdrawalRecord
	Err    error
	Polls  int
}

// Watch polls id every interval until the status is terminal, the id is
// unknown, the session is rejected or ctx ends. onUpdate runs on the calling
// goroutine after every poll. The final record is returned when polling
// stopped on a terminal status.
func Watch(ctx context.Context, checker StatusChecker, id string, interval time.Duration, onUpdate func(Update)) (*domain.WithdrawalRecord, error) {
	if interval < MinInterval {
		interval = MinInterval
	}
	return watch(ctx, checker, id, interval, onUpdate)
}

func watch(ctx context.Context, checker StatusChecker, id string, interval time.Duration, onUpdate func(Update)) (*domain.WithdrawalRecord, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	polls := 0
	for {
		polls++
		record, err := checker.CheckStatus(ctx, id)

		if onUpdate != nil {
			onUpdate(Update{Record: record, Err: err, Polls: polls})
		}

		switch {
		case err == nil && record.Status.IsTerminal():
			return record, nil
		case err != nil && stopsPolling(err):
			return nil, err
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// stopsPolling is true for errors another poll cannot fix
func stopsPolling(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAuth)
}

// Describe is a one line summary for logs and the CLI
func Describe(record *domain.WithdrawalRecord) string {
	line := fmt.Sprintf("%s: %s", record.ID, record.Status)
	if record.FailureReason != nil && *record.FailureReason != "" {
		line += fmt.Sprintf(" (%s)", *record.FailureReason)
	}
	if record.Status.IsTerminal() {
		line += ", final"
	}
	return line
}

func (c *Checker) log(id string) *logrus.Entry {
	return c.logger.WithFields(logrus.Fields{"component": "status_poller", "withdrawal_id": id})
}
