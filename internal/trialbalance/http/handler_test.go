package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/tbview/internal/credentials"
	"github.com/odyssey-erp/tbview/internal/shared"
	"github.com/odyssey-erp/tbview/internal/trialbalance"
	"github.com/odyssey-erp/tbview/internal/view"
)

type fakeExporter struct {
	err  error
	rows int
}

func (f *fakeExporter) ExportTrialBalance(_ context.Context, vm trialbalance.ViewModel) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.rows = len(vm.Rows)
	return []byte("%PDF-fake"), nil
}

type handlerFixture struct {
	router  chi.Router
	pages   *Registry
	factory *recordingFactory
	sess    *shared.Session
}

func newFixture(t *testing.T, factory *recordingFactory, pdf PDFExporter) *handlerFixture {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	pages := NewRegistry(context.Background(), factory.build, nil)
	t.Cleanup(pages.Close)

	h := NewHandler(quietLogger(), engine, pages, shared.NewCSRFManager("secret"), credentials.Static("env-token"), pdf)
	router := chi.NewRouter()
	h.MountRoutes(router)

	sm := shared.NewSessionManager(nil, "tb_session", "secret", time.Hour, false)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return &handlerFixture{router: router, pages: pages, factory: factory, sess: sess}
}

func (f *handlerFixture) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), f.sess))
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *handlerFixture) settle(t *testing.T) *trialbalance.Page {
	t.Helper()
	page, ok := f.pages.Lookup(f.sess.ID)
	require.True(t, ok, "page should be mounted")
	waitSettled(t, page)
	return page
}

func TestPageRendersLoadingThenReport(t *testing.T) {
	gate := make(chan struct{})
	fx := newFixture(t, &recordingFactory{payload: balancedPayload, gate: gate}, nil)

	rr := fx.do(http.MethodGet, "/trial-balance", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `http-equiv="refresh"`)
	assert.Contains(t, body, `role="progressbar"`)
	assert.NotContains(t, body, "<table")

	close(gate)
	fx.settle(t)

	rr = fx.do(http.MethodGet, "/trial-balance", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body = rr.Body.String()
	assert.NotContains(t, body, `http-equiv="refresh"`)
	assert.Contains(t, body, "Books are balanced")
	assert.Contains(t, body, "banner-balanced")
	assert.Contains(t, body, `data-account="A1"`)
	assert.Less(t, strings.Index(body, "Cash"), strings.Index(body, "Revenue"))
	assert.Contains(t, body, `name="csrf_token"`)
	assert.Equal(t, 1, fx.factory.fetchCount(), "redisplay must not refetch")
}

func TestPageUsesFallbackCredential(t *testing.T) {
	fx := newFixture(t, &recordingFactory{payload: balancedPayload}, nil)
	fx.do(http.MethodGet, "/trial-balance", nil)
	assert.Equal(t, []string{"env-token"}, fx.factory.seen())
}

func TestStateEndpoint(t *testing.T) {
	fx := newFixture(t, &recordingFactory{payload: balancedPayload}, nil)
	fx.do(http.MethodGet, "/trial-balance", nil)
	fx.settle(t)

	rr := fx.do(http.MethodGet, "/trial-balance/state", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Report struct {
			Balances    []map[string]any `json:"balances"`
			TotalDebit  json.Number      `json:"totalDebit"`
			TotalCredit json.Number      `json:"totalCredit"`
			Balanced    bool             `json:"balanced"`
		} `json:"report"`
		Loading bool   `json:"loading"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.False(t, got.Loading)
	assert.Empty(t, got.Error)
	assert.Len(t, got.Report.Balances, 2)
	assert.Equal(t, "150", got.Report.TotalDebit.String())
	assert.True(t, got.Report.Balanced)
}

func TestStoreTokenRemountsWithSessionCredential(t *testing.T) {
	fx := newFixture(t, &recordingFactory{payload: balancedPayload}, nil)
	fx.do(http.MethodGet, "/trial-balance", nil)
	first := fx.settle(t)

	rr := fx.do(http.MethodPost, "/session/token", url.Values{"token": {" user-token "}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/trial-balance", rr.Header().Get("Location"))
	assert.Equal(t, "user-token", fx.sess.Get(credentials.SessionKey))
	assert.Equal(t, []string{"env-token", "user-token"}, fx.factory.seen())

	second := fx.settle(t)
	assert.NotSame(t, first, second)

	flash := fx.sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "API token saved", flash.Message)
}

func TestStoreEmptyTokenClearsCredential(t *testing.T) {
	fx := newFixture(t, &recordingFactory{payload: balancedPayload}, nil)
	credentials.Store(fx.sess, "old")
	rr := fx.do(http.MethodPost, "/session/token", url.Values{"token": {""}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Empty(t, fx.sess.Get(credentials.SessionKey))
	assert.Equal(t, []string{"env-token"}, fx.factory.seen())
}

func TestRefreshRefetches(t *testing.T) {
	fx := newFixture(t, &recordingFactory{payload: balancedPayload}, nil)
	fx.do(http.MethodGet, "/trial-balance", nil)
	fx.settle(t)

	rr := fx.do(http.MethodPost, "/trial-balance/refresh", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	fx.settle(t)
	assert.Equal(t, 2, fx.factory.fetchCount())
}

func TestRefreshMountsWhenNoPage(t *testing.T) {
	fx := newFixture(t, &recordingFactory{payload: balancedPayload}, nil)
	rr := fx.do(http.MethodPost, "/trial-balance/refresh", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	fx.settle(t)
	assert.Equal(t, 1, fx.factory.fetchCount())
}

func TestDismissClearsError(t *testing.T) {
	fx := newFixture(t, &recordingFactory{err: errors.New("connection refused")}, nil)
	fx.do(http.MethodGet, "/trial-balance", nil)
	page := fx.settle(t)
	require.Equal(t, trialbalance.MessageFetchFailed, page.State().Error)

	body := fx.do(http.MethodGet, "/trial-balance", nil).Body.String()
	assert.Contains(t, body, trialbalance.MessageFetchFailed)
	assert.Contains(t, body, `role="alert"`)

	rr := fx.do(http.MethodPost, "/trial-balance/dismiss", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Empty(t, page.State().Error)
	assert.False(t, page.State().Loading)
}

func TestRemountStartsFreshPage(t *testing.T) {
	fx := newFixture(t, &recordingFactory{payload: balancedPayload}, nil)
	fx.do(http.MethodGet, "/trial-balance", nil)
	first := fx.settle(t)

	rr := fx.do(http.MethodPost, "/trial-balance/remount", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	second := fx.settle(t)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, fx.factory.fetchCount())
}

func TestExportCSV(t *testing.T) {
	gate := make(chan struct{})
	fx := newFixture(t, &recordingFactory{payload: balancedPayload, gate: gate}, nil)

	rr := fx.do(http.MethodGet, "/trial-balance/export.csv", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	close(gate)
	fx.settle(t)

	rr = fx.do(http.MethodGet, "/trial-balance/export.csv", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"Account", "Account Name", "Code", "Type", "Debit", "Credit", "Net Balance"}, records[0])
	assert.Equal(t, []string{"A1", "Cash", "1000", "ASSET", "150", "0", "150"}, records[1])
	assert.Equal(t, []string{"A2", "Revenue", "4000", "INCOME", "0", "150", "-150"}, records[2])
	assert.Equal(t, []string{"", "Total", "", "", "150", "150", ""}, records[3])
}

func TestExportPDF(t *testing.T) {
	t.Run("unavailable without exporter", func(t *testing.T) {
		fx := newFixture(t, &recordingFactory{payload: balancedPayload}, nil)
		rr := fx.do(http.MethodGet, "/trial-balance/pdf", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("renders current view", func(t *testing.T) {
		exporter := &fakeExporter{}
		fx := newFixture(t, &recordingFactory{payload: balancedPayload}, exporter)
		fx.do(http.MethodGet, "/trial-balance", nil)
		fx.settle(t)

		rr := fx.do(http.MethodGet, "/trial-balance/pdf", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
		assert.Equal(t, "%PDF-fake", rr.Body.String())
		assert.Equal(t, 2, exporter.rows)
	})

	t.Run("exporter failure", func(t *testing.T) {
		fx := newFixture(t, &recordingFactory{payload: balancedPayload}, &fakeExporter{err: errors.New("down")})
		fx.do(http.MethodGet, "/trial-balance", nil)
		fx.settle(t)
		rr := fx.do(http.MethodGet, "/trial-balance/pdf", nil)
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})
}

func TestRequestWithoutSession(t *testing.T) {
	fx := newFixture(t, &recordingFactory{payload: balancedPayload}, nil)
	rr := httptest.NewRecorder()
	fx.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/trial-balance", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, 0, fx.pages.Len())
}
