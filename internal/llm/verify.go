package llm

import (
	"context"
	"sync"

	"github.com/renami-app/renami/internal/domain"
)

// Verifier checks credentials for one provider configuration.
type Verifier interface {
	VerifyCredentials(ctx context.Context, cfg domain.ProviderConfig) error
}

// VerifyTask is a running credential check.
type VerifyTask struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	err       error
	cancelled bool
}

// StartVerification runs v.VerifyCredentials on its own goroutine. onDone, if
// non-nil, receives the result unless the task was cancelled first.
func StartVerification(ctx context.Context, v Verifier, cfg domain.ProviderConfig, onDone func(error)) *VerifyTask {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &VerifyTask{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer cancel()
		err := v.VerifyCredentials(taskCtx, cfg)

		t.mu.Lock()
		t.err = err
		skip := t.cancelled
		t.mu.Unlock()
		close(t.done)

		if !skip && onDone != nil {
			onDone(err)
		}
	}()
	return t
}

// Cancel stops the check. The callback will not run afterwards.
func (t *VerifyTask) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
	t.cancel()
}

// Done is closed when the check has finished.
func (t *VerifyTask) Done() <-chan struct{} { return t.done }

// Err returns the result once Done is closed.
func (t *VerifyTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Wait blocks until the check finishes or ctx ends.
func (t *VerifyTask) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
