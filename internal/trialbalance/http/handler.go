// Package http serves the trial balance page, its exports and the session
// credential form.
package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/tbview/internal/credentials"
	"github.com/odyssey-erp/tbview/internal/platform/httpx"
	"github.com/odyssey-erp/tbview/internal/shared"
	"github.com/odyssey-erp/tbview/internal/trialbalance"
	"github.com/odyssey-erp/tbview/internal/view"
)

const pagePath = "/trial-balance"

// PDFExporter renders a trial balance view as a PDF document.
type PDFExporter interface {
	ExportTrialBalance(ctx context.Context, vm trialbalance.ViewModel) ([]byte, error)
}

// Handler wires trial balance endpoints.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	pages     *Registry
	csrf      *shared.CSRFManager
	fallback  credentials.Provider
	pdf       PDFExporter
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs the trial balance handler. fallback supplies the
// credential for sessions that have not stored one; pdf may be nil.
func NewHandler(logger *slog.Logger, templates *view.Engine, pages *Registry, csrf *shared.CSRFManager, fallback credentials.Provider, pdf PDFExporter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			return "session:" + sess.ID, nil
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	return &Handler{
		logger:    logger,
		templates: templates,
		pages:     pages,
		csrf:      csrf,
		fallback:  fallback,
		pdf:       pdf,
		rateLimit: limiter,
	}
}

// MountRoutes registers trial balance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(pagePath, h.handlePage)
	r.Get(pagePath+"/state", h.handleState)
	r.Post(pagePath+"/dismiss", h.handleDismiss)
	r.Post(pagePath+"/refresh", h.handleRefresh)
	r.Post(pagePath+"/remount", h.handleRemount)
	r.Post("/session/token", h.handleStoreToken)
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Get(pagePath+"/export.csv", h.handleExportCSV)
		r.Get(pagePath+"/pdf", h.handleExportPDF)
	})
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	page := h.pages.Acquire(sess.ID, h.credentialsFor(sess))
	csrfToken, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
	}

	state := page.State()
	data := view.TemplateData{
		Title:       "Trial Balance",
		CSRFToken:   csrfToken,
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		Data:        trialbalance.NewViewModel(state),
	}
	if state.Loading {
		data.RefreshSeconds = 1
	}
	if err := h.templates.Render(w, "pages/trial_balance.html", data); err != nil {
		h.logger.Error("render trial balance", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	page := h.pages.Acquire(sess.ID, h.credentialsFor(sess))
	httpx.JSON(w, http.StatusOK, page.State())
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if page, found := h.pages.Lookup(sess.ID); found {
		page.DismissError()
	}
	http.Redirect(w, r, pagePath, http.StatusSeeOther)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if page, found := h.pages.Lookup(sess.ID); found {
		if !page.Refresh() {
			h.logger.Debug("refresh skipped", slog.String("session", sess.ID))
		}
	} else {
		h.pages.Acquire(sess.ID, h.credentialsFor(sess))
	}
	http.Redirect(w, r, pagePath, http.StatusSeeOther)
}

func (h *Handler) handleRemount(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.pages.Remount(sess.ID, h.credentialsFor(sess))
	http.Redirect(w, r, pagePath, http.StatusSeeOther)
}

func (h *Handler) handleStoreToken(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.RespondError(w, fmt.Errorf("parse token form: %w", httpx.ErrValidation))
		return
	}
	token := strings.TrimSpace(r.PostFormValue("token"))
	credentials.Store(sess, token)
	msg := "API token saved"
	if token == "" {
		msg = "API token cleared"
	}
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: msg})
	h.pages.Remount(sess.ID, h.credentialsFor(sess))
	http.Redirect(w, r, pagePath, http.StatusSeeOther)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	state, ok := h.settledState(w, r)
	if !ok {
		return
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	_ = writer.Write([]string{"Account", "Account Name", "Code", "Type", "Debit", "Credit", "Net Balance"})
	for _, line := range state.Report.Balances {
		cells := line.Cells()
		_ = writer.Write([]string{line.Account, cells.Name, cells.Code, cells.Type, cells.Debit, cells.Credit, cells.Balance})
	}
	_ = writer.Write([]string{"", "Total", "", "", state.Report.TotalDebit.String(), state.Report.TotalCredit.String(), ""})
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("write trial balance csv", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=trial_balance.csv")
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.RespondError(w, fmt.Errorf("pdf export not configured: %w", httpx.ErrUnavailable))
		return
	}
	state, ok := h.settledState(w, r)
	if !ok {
		return
	}
	pdf, err := h.pdf.ExportTrialBalance(r.Context(), trialbalance.NewViewModel(state))
	if err != nil {
		h.logger.Error("generate trial balance pdf", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("pdf export failed: %w", httpx.ErrUpstream))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=trial_balance.pdf")
	_, _ = w.Write(pdf)
}

// settledState returns the session's view-state once no fetch is in flight.
func (h *Handler) settledState(w http.ResponseWriter, r *http.Request) (trialbalance.State, bool) {
	sess, ok := h.session(w, r)
	if !ok {
		return trialbalance.State{}, false
	}
	state := h.pages.Acquire(sess.ID, h.credentialsFor(sess)).State()
	if state.Loading {
		httpx.RespondError(w, fmt.Errorf("trial balance is still loading: %w", httpx.ErrNotReady))
		return trialbalance.State{}, false
	}
	return state, true
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*shared.Session, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("trial balance request without session", slog.String("path", r.URL.Path))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

func (h *Handler) credentialsFor(sess *shared.Session) credentials.Provider {
	return credentials.Chain{credentials.FromSession(sess), h.fallback}
}
