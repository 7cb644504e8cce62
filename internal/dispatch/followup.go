package dispatch

import (
	"context"
	"sync"

	"github.com/chr1sbest/switchboard/internal/logger"
)

// Registry tracks background follow-up loops by run id, so a loop can be
// cancelled explicitly and in-flight loops can be drained at shutdown.
type Registry struct {
	log logger.Logger

	mu sync.Mutex
	m  map[string]context.CancelFunc
	wg sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry(log logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Registry{
		log: log,
		m:   make(map[string]context.CancelFunc),
	}
}

// Start launches fn in a goroutine registered under runID. Returns false
// if a task for that run is already registered; at most one follow-up
// loop runs per run id.
func (r *Registry) Start(runID string, fn func(ctx context.Context)) bool {
	r.mu.Lock()
	if _, exists := r.m[runID]; exists {
		r.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.m[runID] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("follow-up task panicked",
					logger.F("runId", runID),
					logger.F("panic", rec))
			}
			r.mu.Lock()
			delete(r.m, runID)
			r.mu.Unlock()
			cancel()
			r.wg.Done()
		}()
		fn(ctx)
	}()
	return true
}

// Cancel stops the task registered under runID, if any.
func (r *Registry) Cancel(runID string) bool {
	r.mu.Lock()
	cancel, ok := r.m[runID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Active returns the number of registered tasks.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

// Shutdown cancels every task and waits for them to exit, bounded by ctx.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	for _, cancel := range r.m {
		cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		r.log.Warn("shutdown deadline reached with follow-up tasks still running")
	}
}
