package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/odyssey-erp/tbview/internal/app"
	"github.com/odyssey-erp/tbview/internal/credentials"
	"github.com/odyssey-erp/tbview/internal/observability"
	"github.com/odyssey-erp/tbview/internal/platform/cache"
	"github.com/odyssey-erp/tbview/internal/shared"
	"github.com/odyssey-erp/tbview/internal/trialbalance"
	"github.com/odyssey-erp/tbview/internal/trialbalance/client"
	tbhttp "github.com/odyssey-erp/tbview/internal/trialbalance/http"
	"github.com/odyssey-erp/tbview/internal/view"
	"github.com/odyssey-erp/tbview/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	redisClient, err := cache.New(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, "tbview_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	pdfExporter, err := newPDFExporter(ctx, cfg, logger)
	if err != nil {
		logger.Error("configure pdf export", slog.Any("error", err))
		os.Exit(1)
	}

	apiClient := client.NewClient(cfg.TBAPIBaseURL, nil, cfg.TBFetchTimeout)
	pageLogger := logger.With(slog.String("component", "trial_balance"))
	pages := tbhttp.NewRegistry(ctx, func(creds credentials.Provider) *trialbalance.Page {
		return trialbalance.NewPage(apiClient.WithCredentials(creds), pageLogger, metrics)
	}, metrics.SetMountedPages)
	defer pages.Close()

	fallback := credentials.Static(cfg.TBAPIToken)
	tbHandler := tbhttp.NewHandler(pageLogger, templates, pages, csrfManager, fallback, pdfExporter)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		TrialBalanceHandler: tbHandler,
		Metrics:             metrics,
		Readiness:           cache.ReadinessCheck(redisClient),
	})

	go sweepIdlePages(ctx, logger, pages, cfg.TBPageIdleTTL)

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.TBAPIBaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func newPDFExporter(ctx context.Context, cfg *app.Config, logger *slog.Logger) (tbhttp.PDFExporter, error) {
	if cfg.PDFBackend != app.PDFBackendGotenberg {
		return report.NewLocalExporter(), nil
	}
	gotenberg := report.NewClient(cfg.GotenbergURL)
	if err := gotenberg.Ping(ctx); err != nil {
		logger.Warn("gotenberg ping", slog.String("url", cfg.GotenbergURL), slog.Any("error", err))
	}
	return report.NewGotenbergExporter(gotenberg)
}

// sweepIdlePages unmounts pages whose session has not displayed them for idle.
func sweepIdlePages(ctx context.Context, logger *slog.Logger, pages *tbhttp.Registry, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := pages.Sweep(idle); n > 0 {
				logger.Debug("unmounted idle trial balance pages", slog.Int("count", n))
			}
		}
	}
}
