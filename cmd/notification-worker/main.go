package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/Rithvickkr/DOBBE-assignment/cmd/mainconfig"
	"github.com/Rithvickkr/DOBBE-assignment/internal/app/bootstrap"
	appconfig "github.com/Rithvickkr/DOBBE-assignment/internal/config"
	"github.com/Rithvickkr/DOBBE-assignment/internal/notify"
	"github.com/Rithvickkr/DOBBE-assignment/internal/observability/metrics"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.NotifyQueue != "sqs" {
		logger.Error("notification worker needs NOTIFY_QUEUE=sqs; the memory queue runs inside the API", "queue", cfg.NotifyQueue)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	queue, err := bootstrap.BuildNotificationQueue(cfg, &awsConfig)
	if err != nil {
		logger.Error("failed to build notification queue", "error", err)
		os.Exit(1)
	}
	deliverer, err := bootstrap.BuildDeliverer(ctx, cfg, &awsConfig, metrics.NewEngineMetrics(nil), logger)
	if err != nil {
		logger.Error("failed to build deliverer", "error", err)
		os.Exit(1)
	}

	worker := notify.NewWorker(queue, deliverer, logger, notify.WithWorkerCount(cfg.NotifyWorkers))
	worker.Start(ctx)
	logger.Info("notification worker started", "workers", cfg.NotifyWorkers, "queue_url", cfg.NotifyQueueURL)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down notification worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("notification worker stopped")
	case <-doneCtx.Done():
		logger.Error("notification worker shutdown timed out", "error", doneCtx.Err())
	}
}
