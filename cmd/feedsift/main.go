package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedsift/feedsift/internal/config"
	"github.com/feedsift/feedsift/internal/observability/otelx"
	"github.com/feedsift/feedsift/internal/runner"
	"github.com/feedsift/feedsift/internal/trigger"
)

func main() {
	env := config.LoadEnv()

	configPath := flag.String("config", env.ConfigPath, "path to feedsift document")
	runOnce := flag.Bool("run-once", env.RunOnce, "run once and exit")
	allowPartial := flag.Bool("allow-partial", env.AllowPartialSourceErrors, "continue if a source fails")
	flag.Parse()

	env.AllowPartialSourceErrors = *allowPartial

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	data, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalf("failed to read config %s: %v", *configPath, err)
	}
	doc, err := config.Parse(data)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otelx.Init(ctx, logger, env.OTel)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	if shutdownTracing != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				logger.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	pipeline, cleanup, err := runner.Build(doc, env, logger)
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Warn("cleanup failed", "error", err)
		}
	}()

	if *runOnce || doc.Workflow.Trigger == nil {
		if _, err := pipeline.Run(ctx); err != nil {
			log.Fatalf("run failed: %v", err)
		}
		return
	}

	cron, err := trigger.NewCron(doc.Workflow.Name, doc.Workflow.Trigger.Schedule, doc.Workflow.Trigger.Timezone)
	if err != nil {
		log.Fatalf("failed to create trigger: %v", err)
	}
	events, err := cron.Start(ctx)
	if err != nil {
		log.Fatalf("failed to start trigger: %v", err)
	}
	logger.Info("scheduled", "workflow", doc.Workflow.Name, "schedule", doc.Workflow.Trigger.Schedule)

	pipeline.Listen(ctx, events)
	time.Sleep(200 * time.Millisecond)
}
