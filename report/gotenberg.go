package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/odyssey-erp/tbview/internal/trialbalance"
	"github.com/odyssey-erp/tbview/web"
)

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts an HTML document into a PDF using Gotenberg.
func (c *Client) RenderHTML(ctx context.Context, html []byte) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(html); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/forms/chromium/convert/html", c.baseURL), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("render failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// GotenbergExporter renders the trial balance as HTML and converts it remotely.
type GotenbergExporter struct {
	client *Client
	tpl    *template.Template
}

// NewGotenbergExporter parses the embedded report template.
func NewGotenbergExporter(client *Client) (*GotenbergExporter, error) {
	tpl, err := template.ParseFS(web.Templates, "templates/reports/trial_balance_pdf.html")
	if err != nil {
		return nil, fmt.Errorf("report: parse template: %w", err)
	}
	return &GotenbergExporter{client: client, tpl: tpl}, nil
}

// ExportTrialBalance produces a PDF document for vm.
func (e *GotenbergExporter) ExportTrialBalance(ctx context.Context, vm trialbalance.ViewModel) ([]byte, error) {
	html, err := e.RenderDocument(vm)
	if err != nil {
		return nil, err
	}
	return e.client.RenderHTML(ctx, html)
}

// RenderDocument returns the HTML sent to Gotenberg.
func (e *GotenbergExporter) RenderDocument(vm trialbalance.ViewModel) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.tpl.Execute(&buf, vm); err != nil {
		return nil, fmt.Errorf("report: render html: %w", err)
	}
	return buf.Bytes(), nil
}
