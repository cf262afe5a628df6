package maintenance

import (
	"context"
	"sync"
	"time"

	"notekeeper/internal/observability"
)

// Janitor runs Cleanup on a fixed interval until stopped.
type Janitor struct {
	cleaner  Cleaner
	logger   *observability.Logger
	interval time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

func NewJanitor(cleaner Cleaner, logger *observability.Logger, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Janitor{
		cleaner:  cleaner,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started || j.stopped {
		return
	}
	j.started = true
	go j.run()
}

// Stop ends the loop and waits for an in-flight run to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.stopped {
		return
	}
	j.stopped = true
	close(j.stop)
	if j.started {
		<-j.done
	}
}

func (j *Janitor) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			j.RunOnce(context.Background())
		}
	}
}

func (j *Janitor) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, j.interval)
	defer cancel()

	result, err := j.cleaner.Cleanup(ctx)
	if err != nil {
		j.logger.Error("janitor_cleanup_failed", map[string]any{"error": err.Error()})
		return
	}

	if result.DeletedPasscodes+result.DeletedRevocations+result.DeletedRateLimitKeys > 0 {
		j.logger.Info("janitor_cleanup_completed", map[string]any{
			"deleted_passcodes":       result.DeletedPasscodes,
			"deleted_revocations":     result.DeletedRevocations,
			"deleted_rate_limit_keys": result.DeletedRateLimitKeys,
		})
	}
}
