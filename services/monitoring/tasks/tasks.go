package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/logging"
)

// Task is a unit of deferred work
type Task struct {
	ID      string
	Name    string
	Fn      func(context.Context) error
	LastRun time.Time
	// ErrorChan receives the task error when someone is listening
	ErrorChan chan error
}

// TaskScheduler runs one-shot tasks after a delay. Stop cancels everything
// still waiting.
type TaskScheduler struct {
	tasks  map[string]*Task
	mu     sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *logging.Logger
}

func NewTaskScheduler(logger *logging.Logger) *TaskScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskScheduler{
		tasks:  make(map[string]*Task),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

func (ts *TaskScheduler) AddTask(id, name string, fn func(context.Context) error) (*Task, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, exists := ts.tasks[id]; exists {
		return nil, fmt.Errorf("task with ID %s already exists", id)
	}

	task := &Task{
		ID:        id,
		Name:      name,
		Fn:        fn,
		ErrorChan: make(chan error, 1),
	}

	ts.tasks[id] = task
	ts.logger.Debug(fmt.Sprintf("Added task %s to scheduler", id))
	return task, nil
}

// RunAfterAndRemove runs a task once after duration, then forgets it
func (ts *TaskScheduler) RunAfterAndRemove(id string, duration time.Duration) error {
	ts.mu.Lock()
	task, exists := ts.tasks[id]
	if !exists {
		ts.mu.Unlock()
		return fmt.Errorf("task with ID %s not found", id)
	}
	ctx := ts.ctx
	ts.mu.Unlock()

	ts.logger.Debug(fmt.Sprintf("Scheduling task %s to run after %s and then be removed", id, duration))

	ts.wg.Add(1)
	go func() {
		defer ts.wg.Done()

		timer := time.NewTimer(duration)
		defer timer.Stop()

		select {
		case <-timer.C:
			if err := task.Fn(ctx); err != nil {
				ts.logger.Error(fmt.Sprintf("Task %s failed: %v", task.Name, err))

				// Non-blocking send to error channel
				select {
				case task.ErrorChan <- err:
				default:
					ts.logger.Warn(fmt.Sprintf("Could not send error to channel for task %s", id))
				}
			}

			ts.mu.Lock()
			task.LastRun = time.Now()
			delete(ts.tasks, id)
			ts.mu.Unlock()

		case <-ctx.Done():
			ts.logger.Debug(fmt.Sprintf("Task %s canceled before execution", id))
		}
	}()

	return nil
}

// Schedule is AddTask followed by RunAfterAndRemove
func (ts *TaskScheduler) Schedule(id, name string, delay time.Duration, fn func(context.Context) error) error {
	if _, err := ts.AddTask(id, name, fn); err != nil {
		return err
	}
	return ts.RunAfterAndRemove(id, delay)
}

func (ts *TaskScheduler) RemoveTask(id string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, exists := ts.tasks[id]; !exists {
		return fmt.Errorf("task with ID %s not found", id)
	}

	delete(ts.tasks, id)
	return nil
}

func (ts *TaskScheduler) GetTask(id string) (*Task, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	task, exists := ts.tasks[id]
	if !exists {
		return nil, fmt.Errorf("task with ID %s not found", id)
	}

	return task, nil
}

// Pending reports how many tasks have not run yet
func (ts *TaskScheduler) Pending() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.tasks)
}

// Stop cancels waiting tasks and blocks until running ones return
func (ts *TaskScheduler) Stop() {
	ts.cancel()
	ts.wg.Wait()

	ts.mu.Lock()
	ts.tasks = make(map[string]*Task)
	ts.mu.Unlock()
}
