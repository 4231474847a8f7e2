// Package client fetches the trial balance report from the accounting service.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/tbview/internal/credentials"
)

// TrialBalancePath is the report endpoint of the accounting service.
const TrialBalancePath = "/api/accounts/trial-balance"

const maxBodyBytes = 16 << 20

var errBodyTooLarge = errors.New("response body exceeds size limit")

var tracer = otel.Tracer("tbview/client")

// Error is a failed request: network, timeout, unreadable body or non-2xx status.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("trial balance request failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("trial balance request failed: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the message supplied by the server, if any.
func (e *Error) UserMessage() string { return e.Message }

// Client issues the authenticated report request. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      credentials.Provider
	inflight   *singleflight.Group
	maxBody    int64
}

// NewClient constructs a client for the service at baseURL.
func NewClient(baseURL string, creds credentials.Provider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		creds:    creds,
		inflight: &singleflight.Group{},
		maxBody:  maxBodyBytes,
	}
}

// WithCredentials returns a client sharing transport settings but reading
// its credential from creds.
func (c *Client) WithCredentials(creds credentials.Provider) *Client {
	return &Client{baseURL: c.baseURL, httpClient: c.httpClient, creds: creds, inflight: c.inflight, maxBody: c.maxBody}
}

// Fetch returns the raw response body of the report endpoint. Concurrent
// calls holding the same credential share one request.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "TrialBalanceClient.Fetch")
	defer span.End()

	var token string
	var ok bool
	if c.creds != nil {
		token, ok = c.creds.BearerToken()
	}
	span.SetAttributes(attribute.Bool("auth.bearer", ok))

	shared := context.WithoutCancel(ctx)
	key := fmt.Sprintf("%t:%s", ok, token)
	resultChan := c.inflight.DoChan(key, func() (interface{}, error) {
		return c.do(shared, token, ok)
	})
	select {
	case <-ctx.Done():
		span.SetStatus(codes.Error, "cancelled")
		return nil, ctx.Err()
	case res := <-resultChan:
		span.SetAttributes(attribute.Bool("request.shared", res.Shared))
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) do(ctx context.Context, token string, authenticated bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+TrialBalancePath, nil)
	if err != nil {
		return nil, &Error{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &Error{Status: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > c.maxBody {
		return nil, &Error{Status: resp.StatusCode, Err: errBodyTooLarge}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Status:  resp.StatusCode,
			Message: serverMessage(body),
			Err:     fmt.Errorf("unexpected status %s", http.StatusText(resp.StatusCode)),
		}
	}
	return body, nil
}

// serverMessage extracts the optional {"message": "..."} of an error body.
func serverMessage(body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var message string
	if err := json.Unmarshal(payload.Message, &message); err != nil {
		return ""
	}
	return message
}
