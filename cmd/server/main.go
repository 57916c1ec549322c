package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/networth-backend/internal/adapter/grpc"
	httpadapter "github.com/simaogato/networth-backend/internal/adapter/http"
	"github.com/simaogato/networth-backend/internal/adapter/upload"
	"github.com/simaogato/networth-backend/internal/backend"
	"github.com/simaogato/networth-backend/internal/config"
	"github.com/simaogato/networth-backend/internal/metrics"
	"github.com/simaogato/networth-backend/internal/usecase/dashboard"
	"github.com/simaogato/networth-backend/internal/usecase/portfolio"
	"github.com/simaogato/networth-backend/internal/usecase/scheduler"
	"github.com/simaogato/networth-backend/internal/usecase/seeder"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// 1. Setup storage
	stores, err := backend.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeWithTimeout(logger, "store", stores.Cleanup)

	// 2. Import a legacy document into an empty store
	if cfg.ImportFile != "" {
		documentSeeder := seeder.NewDocumentSeeder(stores.Store, logger)
		if _, err := documentSeeder.SeedFile(ctx, cfg.ImportFile); err != nil {
			return fmt.Errorf("failed to import %s: %w", cfg.ImportFile, err)
		}
	}

	// 3. Events and metrics
	sinks := backend.OpenEvents(ctx, cfg, logger)
	defer closeWithTimeout(logger, "events", sinks.Cleanup)

	collector := metrics.NewCollector()

	// 4. Initialize Services (Use Cases)
	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create uploads dir: %w", err)
	}
	assets := upload.NewDiskStore(cfg.UploadsDir, cfg.MaxUploadBytes)

	dashboardService := dashboard.NewDashboardService(stores.Store)
	portfolioService := portfolio.NewPortfolioService(stores.Store, assets, sinks.Publisher, logger)
	portfolioService.Observer = collector

	if doc, err := dashboardService.GetDocument(ctx); err != nil {
		logger.Warn("failed to load document for metrics", "error", err)
	} else {
		collector.ObserveDocument(doc)
	}

	// 5. Auto snapshots
	if cfg.AutoSnapshotCron != "" {
		autoSnapshot, err := scheduler.NewAutoSnapshotScheduler(cfg.AutoSnapshotCron, stores.Store, portfolioService, logger)
		if err != nil {
			return err
		}
		autoSnapshot.Start()
		defer closeWithTimeout(logger, "scheduler", autoSnapshot.Stop)
	}

	// 6. HTTP API
	handler := httpadapter.NewHandler(dashboardService, portfolioService, logger)
	handler.Revisions = stores.Revisions
	handler.UploadsDir = cfg.UploadsDir
	handler.StaticDir = cfg.StaticDir
	handler.MaxUploadBytes = cfg.MaxUploadBytes
	httpServer := httpadapter.NewServer(":"+cfg.Port,
		httpadapter.LoggingMiddleware(logger)(httpadapter.CORS(collector.Middleware(handler.Routes()))))

	// 7. gRPC API
	interceptors := []grpclib.UnaryServerInterceptor{grpcadapter.LoggingInterceptor(logger)}
	if cfg.APIToken != "" {
		interceptors = append(interceptors, grpcadapter.AuthInterceptor(cfg.APIToken))
	} else {
		logger.Warn("API_TOKEN is not set, gRPC API is unauthenticated")
	}
	grpcServer := grpclib.NewServer(grpclib.ChainUnaryInterceptor(interceptors...))
	grpcadapter.RegisterNetWorthServiceServer(grpcServer, grpcadapter.NewServer(dashboardService, portfolioService))
	reflection.Register(grpcServer)

	// 8. Metrics endpoint
	var metricsServer *http.Server
	if cfg.MetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", collector.Handler())
		metricsServer = httpadapter.NewServer(":"+cfg.MetricsPort, mux)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.GRPCPort != "" {
		g.Go(func() error {
			lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCPort, err)
			}
			logger.Info("gRPC server listening", "addr", lis.Addr().String())
			if err := grpcServer.Serve(lis); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	if metricsServer != nil {
		g.Go(func() error {
			logger.Info("metrics server listening", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	// Graceful shutdown on signal or on the first listener failure
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()
		errs := []error{httpServer.Shutdown(shutdownCtx)}
		if metricsServer != nil {
			errs = append(errs, metricsServer.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func closeWithTimeout(logger *slog.Logger, name string, cleanup func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := cleanup(ctx); err != nil {
		logger.Warn("failed to close "+name, "error", err)
	}
}
