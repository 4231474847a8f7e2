// Package cli implements the tbctl commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/tbview/internal/credentials"
	"github.com/odyssey-erp/tbview/internal/trialbalance"
	"github.com/odyssey-erp/tbview/internal/trialbalance/client"
)

// Exit codes returned by ShowCommand.
const (
	ExitOK          = 0
	ExitTransport   = 1
	ExitValidation  = 2
	ExitNotBalanced = 10
)

// ShowOptions defines available flags for the show command.
type ShowOptions struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
	Logger     *slog.Logger
}

// outcomeRecorder keeps the outcome of the single fetch cycle.
type outcomeRecorder struct {
	mu      sync.Mutex
	outcome string
}

func (o *outcomeRecorder) ObserveFetch(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcome = outcome
}

func (o *outcomeRecorder) get() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcome
}

// ShowCommand mounts one trial balance page, waits for its fetch cycle and
// prints the resulting view.
func ShowCommand(ctx context.Context, opts ShowOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "show: --base-url is required")
		return ExitTransport
	}

	recorder := &outcomeRecorder{}
	fetcher := client.NewClient(opts.BaseURL, credentials.Static(opts.Token), opts.Timeout)
	page := trialbalance.NewPage(fetcher, opts.Logger, recorder)
	page.Mount(ctx)
	defer page.Unmount()

	select {
	case <-page.Done():
	case <-ctx.Done():
		_, _ = fmt.Fprintf(opts.Stderr, "show: %v\n", ctx.Err())
		return ExitTransport
	}

	state := page.State()
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(state); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "show: encode json: %v\n", err)
			return ExitTransport
		}
	} else if err := trialbalance.RenderText(opts.Stdout, trialbalance.NewViewModel(state)); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "show: render: %v\n", err)
		return ExitTransport
	}

	switch recorder.get() {
	case trialbalance.OutcomeFailed:
		return ExitTransport
	case trialbalance.OutcomeRejected:
		return ExitValidation
	}
	if !state.Report.Balanced {
		return ExitNotBalanced
	}
	return ExitOK
}
