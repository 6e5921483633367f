package tasks

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Progress counts completed trials. It is safe for concurrent use.
type Progress struct {
	total int64
	done  atomic.Int64
}

func NewProgress(total int) *Progress {
	return &Progress{total: int64(total)}
}

// Done records one completed trial
func (p *Progress) Done() {
	p.done.Add(1)
}

// Completed returns completed and total trials
func (p *Progress) Completed() (int, int) {
	return int(p.done.Load()), int(p.total)
}

// ProgressTask periodically logs trial progress
type ProgressTask struct {
	progress *Progress
	interval time.Duration
}

func NewProgressTask(progress *Progress, interval time.Duration) *ProgressTask {
	return &ProgressTask{progress: progress, interval: interval}
}

func (t *ProgressTask) Run(ctx context.Context) error {
	done, total := t.progress.Completed()
	percent := 0.0
	if total > 0 {
		percent = 100 * float64(done) / float64(total)
	}
	slog.Info("Trial progress",
		"completed", done,
		"total", total,
		"percent", percent,
	)
	return nil
}

func (t *ProgressTask) Interval() time.Duration {
	return t.interval
}

func (t *ProgressTask) Name() string {
	return "progress"
}
