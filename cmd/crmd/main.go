// Command crmd runs the CRM core: it opens the persistent store,
// builds the mutation service, and drives the scheduled jobs until
// interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"crmcore/internal/config"
	"crmcore/internal/core"
	"crmcore/internal/ctxlog"
	"crmcore/internal/gateway"
	"crmcore/internal/infra/blob"
	blobfactory "crmcore/internal/infra/blob/factory"
	"crmcore/internal/jobs"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "crmd.hcl", "path to the HCL configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := slog.Default()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, logger)

	store, err := core.OpenStorage(core.StorageDriver(cfg.StorageDriver), core.StorageSettings{
		SQLitePath:  cfg.SQLitePath,
		PostgresDSN: cfg.PostgresDSN,
	}, nil)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	metrics := core.NewExpvarMetricsRecorder("crmd_service_metrics")
	service := core.NewService(store, core.WithLogger(logger), core.WithMetrics(metrics))

	var client gateway.Client
	if cfg.Gateway.Endpoint != "" {
		client = gateway.NewHTTPClient(cfg.Gateway.Endpoint,
			gateway.WithRequestTimeout(cfg.GatewayTimeout()),
			gateway.WithMaxRetries(uint64(cfg.Gateway.MaxRetries)),
			gateway.WithRetryInterval(cfg.GatewayRetryInterval()),
		)
	} else {
		client = gateway.NewLocal(service)
	}

	archive, err := blobfactory.Open(ctx, blob.Driver(cfg.BlobDriver))
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}

	runner, err := buildRunner(cfg, logger, service, client, archive)
	if err != nil {
		return err
	}
	if err := runner.Start(ctx); err != nil {
		return err
	}
	logger.Info("crmd running",
		"storage", cfg.StorageDriver,
		"blob", cfg.BlobDriver,
		"gateway", gatewayLabel(cfg),
	)

	<-ctx.Done()
	logger.Info("shutting down")
	runner.Stop()
	return nil
}

func buildRunner(cfg config.Config, logger *slog.Logger, service *core.Service, client gateway.Client, archive blob.Store) (*jobs.Runner, error) {
	heartbeatBook, err := jobs.NewFileLogbook(filepath.Join(cfg.LogDir, "crm_heartbeat_log.txt"))
	if err != nil {
		return nil, err
	}
	stockBook, err := jobs.NewFileLogbook(filepath.Join(cfg.LogDir, "low_stock_updates_log.txt"))
	if err != nil {
		return nil, err
	}
	reportBook, err := jobs.NewFileLogbook(filepath.Join(cfg.LogDir, "crm_report_log.txt"))
	if err != nil {
		return nil, err
	}
	reminderBook, err := jobs.NewFileLogbook(filepath.Join(cfg.LogDir, "order_reminders_log.txt"))
	if err != nil {
		return nil, err
	}

	reportDay, err := cfg.ReportWeekday()
	if err != nil {
		return nil, err
	}

	runner := jobs.NewRunner(jobs.WithRunnerLogger(logger))
	register := func(name string, schedule jobs.Schedule, run func(context.Context) error) error {
		return runner.Register(jobs.Job{Name: name, Schedule: schedule, Run: run})
	}
	if err := register("heartbeat", jobs.Every(cfg.HeartbeatInterval()), jobs.NewHeartbeat(heartbeatBook, client).Run); err != nil {
		return nil, err
	}
	if err := register("replenish-low-stock", jobs.Every(cfg.ReplenishInterval()), jobs.NewReplenish(service, stockBook).Run); err != nil {
		return nil, err
	}
	if err := register("weekly-report", jobs.Weekly(reportDay, cfg.ReportHour(), 0), jobs.NewWeeklyReport(client, reportBook, archive).Run); err != nil {
		return nil, err
	}
	if err := register("order-reminders", jobs.Daily(cfg.RemindersHour(), 0), jobs.NewOrderReminders(client, service.Store(), reminderBook).Run); err != nil {
		return nil, err
	}
	return runner, nil
}

func gatewayLabel(cfg config.Config) string {
	if cfg.Gateway.Endpoint != "" {
		return cfg.Gateway.Endpoint
	}
	return "local"
}
