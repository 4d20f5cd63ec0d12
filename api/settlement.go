package api

import (
	"context"
	"fmt"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/tasks"
)

// Settler plays the payout processor: every new withdrawal moves to
// processing after one delay and to completed after another.
type Settler struct {
	ledger    *Ledger
	scheduler *tasks.TaskScheduler
	delay     time.Duration
}

func NewSettler(ledger *Ledger, scheduler *tasks.TaskScheduler, delay time.Duration) *Settler {
	return &Settler{
		ledger:    ledger,
		scheduler: scheduler,
		delay:     delay,
	}
}

func (s *Settler) Track(id string) error {
	if err := s.scheduler.Schedule("processing:"+id, "withdrawal processing", s.delay, s.move(id, domain.StatusProcessing)); err != nil {
		return err
	}
	return s.scheduler.Schedule("completed:"+id, "withdrawal completed", 2*s.delay, s.move(id, domain.StatusCompleted))
}

func (s *Settler) move(id string, status domain.WithdrawalStatus) func(context.Context) error {
	return func(ctx context.Context) error {
		if _, err := s.ledger.Settle(id, status, ""); err != nil {
			return fmt.Errorf("could not move %s to %s: %w", id, status, err)
		}
		return nil
	}
}
