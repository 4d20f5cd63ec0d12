package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/logging"
)

func TestScheduleRunsOnceAndRemoves(t *testing.T) {
	ts := NewTaskScheduler(logging.NewDiscardLogger())
	defer ts.Stop()

	ran := make(chan struct{}, 2)
	if err := ts.Schedule("t1", "settle", 10*time.Millisecond, func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}

	deadline := time.Now().Add(time.Second)
	for ts.Pending() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ts.Pending() != 0 {
		t.Fatalf("expected task to be removed, %d pending", ts.Pending())
	}
}

func TestAddTaskRejectsDuplicateID(t *testing.T) {
	ts := NewTaskScheduler(logging.NewDiscardLogger())
	defer ts.Stop()

	noop := func(context.Context) error { return nil }
	if _, err := ts.AddTask("dup", "a", noop); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := ts.AddTask("dup", "b", noop); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
}

func TestTaskErrorIsDelivered(t *testing.T) {
	ts := NewTaskScheduler(logging.NewDiscardLogger())
	defer ts.Stop()

	boom := errors.New("boom")
	task, err := ts.AddTask("err", "failing", func(context.Context) error { return boom })
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ts.RunAfterAndRemove("err", time.Millisecond); err != nil {
		t.Fatalf("run: %v", err)
	}

	select {
	case got := <-task.ErrorChan:
		if !errors.Is(got, boom) {
			t.Fatalf("expected boom, got %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error delivered")
	}
}

func TestStopCancelsWaitingTasks(t *testing.T) {
	ts := NewTaskScheduler(logging.NewDiscardLogger())

	ran := make(chan struct{}, 1)
	if err := ts.Schedule("late", "late", time.Hour, func(context.Context) error {
		ran <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	ts.Stop()

	select {
	case <-ran:
		t.Fatal("cancelled task ran")
	default:
	}
	if ts.Pending() != 0 {
		t.Fatalf("expected no pending tasks after stop, got %d", ts.Pending())
	}
}
