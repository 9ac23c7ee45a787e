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

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitorder/internal/auth"
	"github.com/mmynk/splitorder/internal/broadcast"
	"github.com/mmynk/splitorder/internal/config"
	"github.com/mmynk/splitorder/internal/ledger"
	"github.com/mmynk/splitorder/internal/middleware"
	"github.com/mmynk/splitorder/internal/orders"
	"github.com/mmynk/splitorder/internal/service"
	"github.com/mmynk/splitorder/internal/storage/sqlite"
	"github.com/mmynk/splitorder/pkg/logging"
)

const tokenDuration = 24 * time.Hour

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.DBPath)

	hub := broadcast.NewHub(cfg.SubscriberBuffer)
	var transports []broadcast.Transport

	// With Redis, every instance publishes there and its relay feeds the
	// local hub; without it the hub is delivered to directly.
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}

		relay := broadcast.NewRedisRelay(rdb, hub, logger)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Redis relay stopped", "error", err)
			}
		}()
		transports = append(transports, broadcast.NewRedisTransport(rdb))
		logger.Info("Redis fan-out enabled", "address", cfg.RedisAddr)
	} else {
		transports = append(transports, hub)
	}

	if len(cfg.KafkaBrokers) > 0 {
		kt := broadcast.NewKafkaTransport(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kt.Close()
		transports = append(transports, kt)
		logger.Info("Kafka event log enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// The dispatcher outlives the signal context; Stop drains it on shutdown.
	broadcaster := broadcast.New(logger, cfg.EventQueueSize, transports...)
	if err := broadcaster.Start(context.Background()); err != nil {
		return fmt.Errorf("start broadcaster: %w", err)
	}

	coord := orders.New(store, ledger.New(logger), broadcaster,
		orders.WithLogger(logger),
		orders.WithMaxAttempts(cfg.MaxCommitAttempts),
	)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, tokenDuration)

	mux := http.NewServeMux()

	interceptors := connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor())
	orderPath, orderHandler := service.NewOrderServiceHandler(service.NewOrderService(coord), interceptors)
	mux.Handle(orderPath, orderHandler)

	mux.Handle("GET /ws/orders/{groupID}", service.NewStreamHandler(coord, hub, jwtManager, logger))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Add logging and CORS middleware
	loggedHandler := loggingMiddleware(corsMiddleware(mux))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	h2cHandler := h2c.NewHandler(loggedHandler, &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           h2cHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := broadcaster.Stop(shutdownCtx); err != nil {
		logger.Warn("Broadcaster did not drain", "error", err)
	}
	return nil
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slog.Debug("Request received",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(w, r)

		slog.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
