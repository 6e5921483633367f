// Package scheduler runs periodic side tasks, such as progress reporting,
// alongside a batch of trials.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task interface for scheduled tasks
type Task interface {
	Run(ctx context.Context) error
	Interval() time.Duration
	Name() string
}

// Scheduler manages multiple scheduled tasks
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	tasks  []Task
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates a new task scheduler bound to ctx
func New(ctx context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		tasks:  make([]Task, 0),
	}
}

// AddTask adds a task to the scheduler. Tasks added after Start are not run.
func (s *Scheduler) AddTask(task Task) {
	s.tasks = append(s.tasks, task)
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.runTask(task)
	}
	slog.Debug("Task scheduler started", "task_count", len(s.tasks))
}

// Stop cancels all tasks and waits for them. Every task runs one final time
// on the way out so the last state is reported. Stop is idempotent.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
		slog.Debug("Task scheduler stopped")
	})
}

// runTask runs a single task on its schedule
func (s *Scheduler) runTask(task Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.run(context.WithoutCancel(s.ctx), task)
			return
		case <-ticker.C:
			s.run(s.ctx, task)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, task Task) {
	if err := task.Run(ctx); err != nil {
		slog.Error("Error running task", "task", task.Name(), "error", err)
	}
}
