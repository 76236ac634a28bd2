package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nathanyu/account-ledger/internal/config"
	"github.com/nathanyu/account-ledger/internal/engine"
	"github.com/nathanyu/account-ledger/internal/handler"
	"github.com/nathanyu/account-ledger/internal/middleware"
	"github.com/nathanyu/account-ledger/internal/notify"
	"github.com/nathanyu/account-ledger/internal/queue"
	"github.com/nathanyu/account-ledger/internal/store"
	"github.com/nathanyu/account-ledger/internal/telemetry"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName    = "account-ledger"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		slog.Error("service exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	level, _ := telemetry.ParseLevel(cfg.LogLevel)
	logger := telemetry.InitLogger(serviceName, level)

	if cfg.OTLPEndpoint != "" {
		cleanup, err := telemetry.InitTracer(telemetry.TracerConfig{
			ServiceName:    serviceName,
			ServiceVersion: serviceVersion,
			Environment:    cfg.Environment,
			Endpoint:       cfg.OTLPEndpoint,
		})
		if err != nil {
			logger.Warn("failed to initialize tracer", slog.String("error", err.Error()))
		} else {
			defer cleanup()
		}
	}

	gin.SetMode(cfg.GinMode)
	logger.Info("starting account ledger service")

	// 1. Connect to NATS when configured
	var natsConn *nats.Conn
	if cfg.NATSUrl != "" {
		conn, err := queue.Connect(cfg.NATSUrl, serviceName, logger)
		if err != nil {
			return err
		}
		natsConn = conn
		defer queue.NewClient(natsConn).Close()
		logger.Info("connected to NATS", slog.String("url", cfg.NATSUrl))
	}

	// 2. Notification sinks and dispatcher
	sinks, closeSinks, err := buildSinks(cfg, logger, natsConn)
	if err != nil {
		return err
	}
	defer closeSinks()

	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueue,
		Logger:    logger,
	}, sinks...)
	dispatcher.Start()

	// 3. Core service
	service := engine.NewTransferService(store.NewAccountStore(), dispatcher,
		engine.WithLockStripes(cfg.LockStripes),
		engine.WithLogger(logger),
	)

	// 4. NATS command gateway
	var consumer *queue.CommandConsumer
	if natsConn != nil {
		consumer = queue.NewCommandConsumer(natsConn, service, logger)
		if err := consumer.Start(); err != nil {
			return err
		}
	}

	// 5. Gin router with middleware
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Tracing())
	router.Use(middleware.Metrics())
	handler.SetupRoutes(router, handler.NewHandler(service, cfg.EnableReset))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Metrics server (separate port for Prometheus scraping)
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.Int("port", cfg.Port))
		return serve(srv)
	})
	g.Go(func() error {
		logger.Info("metrics server listening", slog.Int("port", cfg.MetricsPort))
		return serve(metricsSrv)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
		if consumer != nil {
			if err := consumer.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("command consumer stop: %w", err))
			}
		}
		if err := dispatcher.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("service stopped")
	return nil
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// buildSinks opens the configured notification sinks. The returned func closes them.
func buildSinks(cfg *config.Config, logger *slog.Logger, natsConn *nats.Conn) ([]notify.Sink, func(), error) {
	var (
		sinks   []notify.Sink
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	for _, name := range cfg.NotifySinks {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, notify.NewLogSink(logger))
		case config.SinkSpool:
			spool, err := notify.NewSpoolSink(cfg.SpoolPath)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			sinks = append(sinks, spool)
			closers = append(closers, func() { spool.Close() })
		case config.SinkNATS:
			sinks = append(sinks, notify.NewBreakerSink(
				notify.NewNATSSink(natsConn, notify.NotificationSubject),
				notify.BreakerConfig{Logger: logger},
			))
		case config.SinkRedis:
			client, err := notify.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			sinks = append(sinks, notify.NewBreakerSink(
				notify.NewRedisStreamSink(client, notify.NotificationStream, 100000),
				notify.BreakerConfig{Logger: logger},
			))
			closers = append(closers, func() { client.Close() })
		}
		logger.Info("notification sink enabled", slog.String("sink", name))
	}

	return sinks, closeAll, nil
}
