package gen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrBackendsExhausted marks a call for which every candidate backend
// failed. It wraps the last failure.
var ErrBackendsExhausted = errors.New("all generation backends exhausted")

const (
	defaultTries   = 3
	defaultBackoff = 2 * time.Second
	maxBackoff     = 30 * time.Second
)

// Adapter fronts an ordered list of backends. One backend is "current" and
// sticky: it serves every call until it fails persistently, at which point
// the first working backend later in the list takes over.
type Adapter struct {
	backends []Backend
	current  int

	tries   int
	backoff time.Duration
	timeout time.Duration
	logger  *zap.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTries sets the per-backend try budget.
func WithTries(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.tries = n
		}
	}
}

// WithBackoff sets the initial backoff, doubled on each throttled retry.
func WithBackoff(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.backoff = d
		}
	}
}

// WithTimeout bounds each individual backend call.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Adapter) { a.sleep = fn }
}

// NewAdapter builds an Adapter over backends, in fallback order. The first
// backend is the initial current one.
func NewAdapter(logger *zap.Logger, backends []Backend, opts ...Option) (*Adapter, error) {
	if len(backends) == 0 {
		return nil, errors.New("at least one backend is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Adapter{
		backends: backends,
		tries:    defaultTries,
		backoff:  defaultBackoff,
		logger:   logger,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Current returns the sticky backend's name.
func (a *Adapter) Current() string {
	return a.backends[a.current].Name()
}

// Generate produces text for the prompt. Throttling is absorbed by backoff
// and fallback; it surfaces only as ErrBackendsExhausted when every backend
// failed. A non-throttling failure on the current backend is returned
// immediately without local retry.
func (a *Adapter) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := a.tryBackend(ctx, a.backends[a.current], prompt)
	if err == nil {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", err
	}
	if Classify(err) == ClassPermanent {
		return "", fmt.Errorf("backend %s: %w", a.Current(), err)
	}

	a.logger.Warn("backend throttled, falling back",
		zap.String("backend", a.Current()),
		zap.Error(err))

	lastErr := err
	for i, b := range a.backends {
		if i == a.current {
			continue
		}
		text, ferr := a.call(ctx, b, prompt)
		if ferr == nil {
			a.logger.Info("fallback backend promoted",
				zap.String("backend", b.Name()))
			a.current = i
			return text, nil
		}
		lastErr = ferr
		if ctx.Err() != nil {
			return "", ferr
		}
	}
	return "", fmt.Errorf("%w: %v", ErrBackendsExhausted, lastErr)
}

// tryBackend runs up to the try budget against one backend, backing off
// between throttled tries.
func (a *Adapter) tryBackend(ctx context.Context, b Backend, prompt string) (string, error) {
	var lastErr error
	for try := 0; try < a.tries; try++ {
		text, err := a.call(ctx, b, prompt)
		if err == nil {
			if try > 0 {
				a.logger.Debug("retry succeeded",
					zap.String("backend", b.Name()),
					zap.Int("try", try+1))
			}
			return text, nil
		}
		lastErr = err

		out := Decide(try, a.tries, Classify(err), a.backoff)
		switch out.Action {
		case ActionTerminal:
			return "", err
		case ActionSwitchBackend:
			return "", err
		case ActionRetrySameBackend:
			delay := out.Delay
			if delay > maxBackoff {
				delay = maxBackoff
			}
			a.logger.Debug("throttled, backing off",
				zap.String("backend", b.Name()),
				zap.Duration("delay", delay))
			if err := a.sleep(ctx, delay); err != nil {
				return "", err
			}
		}
	}
	return "", lastErr
}

// call runs one backend call under the per-call timeout when configured.
func (a *Adapter) call(ctx context.Context, b Backend, prompt string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return b.Generate(ctx, prompt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
