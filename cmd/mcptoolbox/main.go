package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"mcptoolbox/internal/api/v1/middleware"
	"mcptoolbox/internal/api/v1/router"
	"mcptoolbox/internal/auth"
	"mcptoolbox/internal/cache"
	"mcptoolbox/internal/config"
	"mcptoolbox/internal/debug"
	"mcptoolbox/internal/log"
	"mcptoolbox/internal/mcpserver"
	"mcptoolbox/internal/service"
	"mcptoolbox/internal/store"
)

const shutdownTimeout = 5 * time.Second

func init() {
	log.InitLogger(false)
	config.LoadEnv()
	if config.AppConfig.IsDev {
		log.InitLogger(true)
	}
	log.SetLevel(config.AppConfig.LogLevel)
	log.Named(config.AppConfig.MCPName)
}

func main() {
	defer log.Sync()

	cfg := config.AppConfig
	config.WatchLogLevel(func(level string) {
		log.SetLevel(level)
		log.Logger.Info("log level changed", zap.String("level", log.Level().String()))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Logger.Error("server stopped with error", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Logger.Info("Server exited successfully")
}

func run(ctx context.Context, cfg *config.Config) error {
	st, err := store.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Logger.Warn("store close failed", zap.Error(err))
		}
	}()

	srv, err := mcpserver.New(mcpserver.Deps{
		Config:  cfg,
		Auditor: service.NewPageAuditor(cfg.HTTPFetchTimeout, cache.New(cfg.AuditCacheTTL), cfg.AuditAllowPrivate),
		PDF:     service.NewPDFService(cfg.PDFMaxBytes),
		Tables:  service.NewTableService(st),
		Bugs:    service.NewBugService(st),
	})
	if err != nil {
		return fmt.Errorf("build MCP server: %w", err)
	}

	if cfg.Transport == config.TransportStdio {
		if err := srv.RunStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
	return serveHTTP(ctx, cfg, srv)
}

func serveHTTP(ctx context.Context, cfg *config.Config, srv *mcpserver.Server) error {
	verifier, err := auth.NewVerifier(cfg)
	if err != nil {
		return fmt.Errorf("configure auth: %w", err)
	}

	handlers := router.MCPHandlers{SSE: srv.SSEHandler()}
	if cfg.Transport == config.TransportStreamableHTTP {
		handlers.Streamable = srv.StreamableHandler()
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustedProxyList())
	defer limiter.Stop()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(cfg, handlers, verifier, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	servers := []*http.Server{server}
	errCh := make(chan error, 2)

	if cfg.MetricsEnabled() {
		metricsServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.MetricsPort),
			Handler:           router.NewMetricsRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		servers = append(servers, metricsServer)

		go func() {
			log.Logger.Info("Metrics server started", zap.String("addr", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	} else {
		log.Logger.Info("Metrics server disabled")
	}

	// Pprof only enabled in dev env
	if cfg.IsDev {
		servers = append(servers, debug.StartPprof("localhost:6060"))
	}

	go func() {
		log.Logger.Info("Server started",
			zap.String("addr", server.Addr),
			zap.String("transport", cfg.Transport),
			zap.String("auth_mode", cfg.AuthMode),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Logger.Info("Shutting down server gracefully")
	case runErr = <-errCh:
		log.Logger.Error("listener failed, shutting down", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Logger.Warn("forced shutdown", zap.String("addr", s.Addr), zap.Error(err))
			_ = s.Close()
		}
	}
	return runErr
}
