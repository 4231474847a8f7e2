package trialbalance

import (
	"sync"
	"time"
)

const (
	// MessageFetchFailed is shown when the request failed without a server message.
	MessageFetchFailed = "Failed to fetch trial balance"
	// NotificationTTL is how long an error notification stays up when not dismissed.
	NotificationTTL = 3 * time.Second
)

// State is a consistent snapshot of the view-state.
type State struct {
	Report  Report `json:"report"`
	Loading bool   `json:"loading"`
	Error   string `json:"error"`
}

type stopper interface {
	Stop() bool
}

// Holder owns the view-state of one mounted page. All transitions are atomic
// with respect to Snapshot. Once closed, every write is dropped.
type Holder struct {
	mu       sync.Mutex
	state    State
	closed   bool
	errorGen uint64
	timer    stopper

	afterFunc func(time.Duration, func()) stopper
}

// NewHolder returns a holder in the initial state: loading, no error, empty report.
func NewHolder() *Holder {
	return &Holder{
		state: State{Report: EmptyReport(), Loading: true},
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}

// Snapshot returns the current state.
func (h *Holder) Snapshot() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Begin marks a fetch as in flight. The current report stays visible.
func (h *Holder) Begin() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.state.Loading = true
	h.setErrorLocked("")
	return true
}

// Succeed replaces the report with a validated one.
func (h *Holder) Succeed(report Report) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.state.Report = report
	h.state.Loading = false
	h.setErrorLocked("")
	return true
}

// Reject resets the report after a payload failed the shape gate.
func (h *Holder) Reject() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.state.Report = EmptyReport()
	h.state.Loading = false
	h.setErrorLocked(MessageUnexpectedResponse)
	return true
}

// Fail records a transport failure. The report is left untouched.
func (h *Holder) Fail(message string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if message == "" {
		message = MessageFetchFailed
	}
	h.state.Loading = false
	h.setErrorLocked(message)
	return true
}

// DismissError clears the error text only.
func (h *Holder) DismissError() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.setErrorLocked("")
}

// Close discards the holder and stops any pending notification timer.
func (h *Holder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

func (h *Holder) setErrorLocked(message string) {
	h.state.Error = message
	h.errorGen++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	if message == "" {
		return
	}
	gen := h.errorGen
	h.timer = h.afterFunc(NotificationTTL, func() { h.expire(gen) })
}

func (h *Holder) expire(gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || gen != h.errorGen {
		return
	}
	h.state.Error = ""
	h.timer = nil
}
