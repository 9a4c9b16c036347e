package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Rithvickkr/DOBBE-assignment/cmd/mainconfig"
	"github.com/Rithvickkr/DOBBE-assignment/internal/api/router"
	"github.com/Rithvickkr/DOBBE-assignment/internal/app/bootstrap"
	"github.com/Rithvickkr/DOBBE-assignment/internal/auth"
	"github.com/Rithvickkr/DOBBE-assignment/internal/booking"
	appconfig "github.com/Rithvickkr/DOBBE-assignment/internal/config"
	"github.com/Rithvickkr/DOBBE-assignment/internal/conversation"
	"github.com/Rithvickkr/DOBBE-assignment/internal/notify"
	"github.com/Rithvickkr/DOBBE-assignment/internal/observability/metrics"
	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
	"github.com/Rithvickkr/DOBBE-assignment/internal/session"
	"github.com/Rithvickkr/DOBBE-assignment/internal/stats"
	"github.com/Rithvickkr/DOBBE-assignment/internal/tools"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting medical assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"store", cfg.StoreBackend,
		"llm", cfg.LLMProvider,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer a.close()

	if a.worker != nil {
		a.worker.Start(ctx)
		logger.Info("in-process notification worker started", "workers", cfg.NotifyWorkers)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AgentTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	if a.worker != nil {
		a.worker.Wait()
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type app struct {
	handler http.Handler
	worker  *notify.Worker
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// setupMetrics registers the engine collectors on a dedicated registry.
func setupMetrics() (http.Handler, *metrics.EngineMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewEngineMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.close()
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		return fail(fmt.Errorf("clinic timezone %q: %w", cfg.ClinicTimezone, err))
	}
	metricsHandler, engineMetrics := setupMetrics()

	var awsCfg *aws.Config
	if bootstrap.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return fail(fmt.Errorf("load aws config: %w", err))
		}
		awsCfg = &loaded
	}

	stores, err := bootstrap.BuildStores(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, stores.Close)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty; tokens are signed with an empty key")
	}
	authService := auth.NewService(stores.Users, bootstrap.DoctorRegistrar(stores.Scheduling), tokens, logger)
	if cfg.SeedDemo {
		if err := bootstrap.SeedDemo(ctx, authService, stores.Scheduling, logger); err != nil {
			logger.Warn("demo seeding failed", "error", err)
		}
	}

	queue, err := bootstrap.BuildNotificationQueue(cfg, awsCfg)
	if err != nil {
		return fail(err)
	}
	publisher := notify.NewPublisher(queue, 0, logger)
	if _, inProcess := queue.(*notify.MemoryQueue); inProcess {
		deliverer, err := bootstrap.BuildDeliverer(ctx, cfg, awsCfg, engineMetrics, logger)
		if err != nil {
			return fail(err)
		}
		a.worker = notify.NewWorker(queue, deliverer, logger, notify.WithWorkerCount(cfg.NotifyWorkers))
	}

	llm, closeLLM, err := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, closeLLM)

	bookingEngine := booking.NewEngine(stores.Scheduling, publisher, engineMetrics, logger)
	statsEngine := stats.NewEngine(stores.Scheduling, loc, logger)
	dispatcher := tools.NewDispatcher(stores.Scheduling, bookingEngine, statsEngine, engineMetrics, logger)
	agent := conversation.NewAgent(llm, dispatcher, cfg.AgentMaxIterations, engineMetrics, logger)
	convService := conversation.NewService(
		session.NewStore(cfg.SessionMaxTurns, engineMetrics),
		agent,
		stores.History,
		publisher,
		conversation.ServiceConfig{
			IdleTimeout:  cfg.SessionIdleTimeout,
			ContextTurns: cfg.SessionContextTurns,
			AgentTimeout: cfg.AgentTimeout,
			Location:     loc,
		},
		logger,
	)

	a.handler = router.New(&router.Config{
		Logger:              logger,
		AuthHandler:         auth.NewHandler(authService, logger),
		SchedulingHandler:   scheduling.NewHandler(stores.Scheduling, logger),
		ConversationHandler: conversation.NewHandler(convService, logger),
		Tokens:              tokens,
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
	})
	return a, nil
}
