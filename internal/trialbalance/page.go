package trialbalance

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Fetch outcomes reported to an Observer.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeDiscarded = "discarded"
)

// Fetcher retrieves the raw trial balance response body.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Observer receives the outcome of every fetch cycle.
type Observer interface {
	ObserveFetch(outcome string, duration time.Duration)
}

// userMessager is implemented by fetch errors that carry a server-provided message.
type userMessager interface {
	UserMessage() string
}

// Page runs the fetch, validate, update cycle for one mounted view.
type Page struct {
	fetcher  Fetcher
	holder   *Holder
	logger   *slog.Logger
	observer Observer

	mu      sync.Mutex
	mounted bool
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPage builds an unmounted page. logger and observer may be nil.
func NewPage(fetcher Fetcher, logger *slog.Logger, observer Observer) *Page {
	if logger == nil {
		logger = slog.Default()
	}
	return &Page{
		fetcher:  fetcher,
		holder:   NewHolder(),
		logger:   logger,
		observer: observer,
		done:     make(chan struct{}),
	}
}

// Mount starts the single fetch of this page. Only the first call has an
// effect; it reports whether a fetch was started.
func (p *Page) Mount(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mounted {
		return false
	}
	p.mounted = true
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.startLocked(p.done)
	return true
}

// Refresh re-runs the cycle on the same view-state at the user's request.
// It is a no-op while a fetch is in flight or after Unmount.
func (p *Page) Refresh() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted || p.running || p.ctx == nil || p.ctx.Err() != nil {
		return false
	}
	p.done = make(chan struct{})
	p.startLocked(p.done)
	return true
}

// Unmount cancels any in-flight request and discards the view-state.
func (p *Page) Unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted {
		p.mounted = true
		close(p.done)
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.holder.Close()
}

// Done is closed once the current fetch cycle has finished.
func (p *Page) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// State returns the current view-state.
func (p *Page) State() State {
	return p.holder.Snapshot()
}

// DismissError clears the error text, leaving report and loading untouched.
func (p *Page) DismissError() {
	p.holder.DismissError()
}

func (p *Page) startLocked(done chan struct{}) {
	p.running = true
	ctx := p.ctx
	p.holder.Begin()
	go func() {
		defer close(done)
		p.run(ctx)
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()
}

func (p *Page) run(ctx context.Context) {
	start := time.Now()
	body, err := p.fetcher.Fetch(ctx)
	if ctx.Err() != nil {
		p.logger.Debug("trial balance fetch discarded after unmount")
		p.observe(OutcomeDiscarded, start)
		return
	}

	if err != nil {
		p.logger.Warn("fetch trial balance", slog.Any("error", err))
		var msg userMessager
		message := ""
		if errors.As(err, &msg) {
			message = msg.UserMessage()
		}
		p.apply(p.holder.Fail(message), OutcomeFailed, start)
		return
	}

	report, err := Validate(body)
	if err != nil {
		p.logger.Error("unexpected trial balance response", slog.String("payload", string(body)), slog.Any("error", err))
		p.apply(p.holder.Reject(), OutcomeRejected, start)
		return
	}
	if dups := DuplicateAccounts(report); len(dups) > 0 {
		p.logger.Warn("trial balance has duplicate accounts", slog.Any("accounts", dups))
	}
	if n := malformedRows(report); n > 0 {
		p.logger.Warn("trial balance has malformed rows", slog.Int("rows", n))
	}
	p.apply(p.holder.Succeed(report), OutcomeSuccess, start)
}

func (p *Page) apply(applied bool, outcome string, start time.Time) {
	if !applied {
		outcome = OutcomeDiscarded
	}
	p.observe(outcome, start)
}

func (p *Page) observe(outcome string, start time.Time) {
	if p.observer == nil {
		return
	}
	p.observer.ObserveFetch(outcome, time.Since(start))
}

func malformedRows(r Report) int {
	n := 0
	for _, line := range r.Balances {
		if line.Malformed() {
			n++
		}
	}
	return n
}
