// cmd/assessment-server/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"assessment-pipeline/internal/app"
	"assessment-pipeline/internal/common/camunda"
	"assessment-pipeline/internal/common/config"
	"assessment-pipeline/internal/common/database"
	"assessment-pipeline/internal/common/logger"
	"assessment-pipeline/internal/server"
	processsubmission "assessment-pipeline/internal/workers/assessment/process-submission"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting assessment server...", zap.String("environment", cfg.App.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	stopDispatch, zeebeCheck, err := startDispatcher(ctx, cfg, a, zapLog, log)
	if err != nil {
		zapLog.Fatal("dispatcher failed to start", zap.Error(err))
	}

	checks := map[string]server.HealthCheck{"redis": a.Redis.Ping}
	if zeebeCheck != nil {
		checks["zeebe"] = zeebeCheck
	}

	srvCfg := server.LoadConfig(cfg)
	srv := server.New(srvCfg, server.Dependencies{
		Coordinator:  a.Coordinator,
		Tokens:       a.Tokens,
		Downloads:    a.Store,
		Signer:       a.Signer,
		HealthChecks: checks,
	}, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		zapLog.Info("Shutdown signal received, draining...")
	case err := <-errCh:
		if err != nil {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := stopDispatch(shutdownCtx); err != nil {
		zapLog.Error("Stage 2 dispatcher did not stop cleanly", zap.Error(err))
	}

	zapLog.Info("Assessment server stopped gracefully")
}

// startDispatcher wires the configured Stage 2 dispatcher into the coordinator and returns
// its stop function. In camunda mode it also returns the gateway health check.
func startDispatcher(ctx context.Context, cfg *config.Config, a *app.App, zapLog *zap.Logger, log logger.Logger) (func(context.Context) error, server.HealthCheck, error) {
	procCfg := processsubmission.LoadConfig(cfg)

	if cfg.Dispatch.Mode != config.DispatchCamunda {
		pool := processsubmission.NewPoolDispatcher(procCfg, a.Coordinator.Process, log)
		pool.Start(ctx)
		a.Coordinator.SetDispatcher(pool)
		return pool.Stop, nil, nil
	}

	var client *camunda.Client
	err := database.ConnectWithRetry(ctx, "zeebe", 10, 2*time.Second, func(context.Context) error {
		var err error
		client, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: cfg.Camunda.UsePlaintext,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, func(attempt int, delay time.Duration, err error) {
		zapLog.Warn("Zeebe client initialization failed, retrying...",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("nextRetryIn", delay),
		)
	})
	if err != nil {
		return nil, nil, err
	}
	zapLog.Info("Zeebe client connected successfully")

	dispatcher := processsubmission.NewCamundaDispatcher(procCfg, client, log)
	a.Coordinator.SetDispatcher(dispatcher)
	w := camunda.NewWorker(client.GetClient(), camunda.WorkerConfig{
		TaskType:       procCfg.JobType,
		Name:           cfg.App.Name,
		MaxJobsActive:  procCfg.MaxJobsActive,
		Timeout:        procCfg.JobTimeout,
		FetchVariables: []string{"submissionId"},
	}, a.Coordinator, zapLog)

	return func(ctx context.Context) error {
		w.Stop(ctx)
		err := dispatcher.Stop(ctx)
		if cerr := client.Close(); cerr != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(cerr))
		}
		return err
	}, client.HealthCheck, nil
}
