package utils

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BackgroundProcessManager owns every long-running goroutine (scheduler, API
// server, ingestion loop) and stops them together on shutdown.
type BackgroundProcessManager struct {
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	processes map[string]context.CancelFunc
	mu        sync.Mutex
}

func NewBackgroundProcessManager() *BackgroundProcessManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &BackgroundProcessManager{
		ctx:       ctx,
		cancel:    cancel,
		processes: make(map[string]context.CancelFunc),
	}
}

// StartProcess runs fn in a supervised goroutine. A second start under the
// same name replaces the first.
func (bpm *BackgroundProcessManager) StartProcess(name string, fn func(ctx context.Context)) {
	bpm.mu.Lock()
	if prev, exists := bpm.processes[name]; exists {
		slog.Warn("Replacing existing background process", slog.String("process", name))
		prev()
	}
	processCtx, processCancel := context.WithCancel(bpm.ctx)
	bpm.processes[name] = processCancel
	bpm.mu.Unlock()

	bpm.wg.Add(1)
	go func() {
		defer bpm.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Background process panic",
					slog.String("process", name),
					slog.Any("panic", r))
			}
		}()

		slog.Info("Starting background process", slog.String("process", name))
		fn(processCtx)
		slog.Info("Background process ended", slog.String("process", name))
	}()
}

// StopProcess cancels one process without waiting for it.
func (bpm *BackgroundProcessManager) StopProcess(name string) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	if cancel, exists := bpm.processes[name]; exists {
		cancel()
		delete(bpm.processes, name)
	}
}

// Shutdown cancels everything and waits up to timeout for goroutines to
// drain.
func (bpm *BackgroundProcessManager) Shutdown(timeout time.Duration) error {
	bpm.mu.Lock()
	count := len(bpm.processes)
	bpm.mu.Unlock()

	slog.Info("Shutting down background processes", slog.Int("process_count", count))
	bpm.cancel()

	done := make(chan struct{})
	go func() {
		bpm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("All background processes stopped")
		return nil
	case <-time.After(timeout):
		slog.Warn("Timeout waiting for background processes",
			slog.Duration("timeout", timeout))
		return context.DeadlineExceeded
	}
}

// Context is the root context every process inherits.
func (bpm *BackgroundProcessManager) Context() context.Context {
	return bpm.ctx
}
