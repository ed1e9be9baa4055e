package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/voyara/platform/internal/activity"
	"github.com/voyara/platform/internal/config"
	"github.com/voyara/platform/internal/core"
	"github.com/voyara/platform/internal/db"
	"github.com/voyara/platform/internal/logging"
	"github.com/voyara/platform/internal/mailer"
	"github.com/voyara/platform/internal/metrics"
	"github.com/voyara/platform/internal/workflow"
)

const taskQueue = "voyara-tasks"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	tlsConfig, err := cfg.TemporalTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal TLS")
	}
	dialOpts := temporalclient.Options{HostPort: cfg.TemporalAddress, Namespace: cfg.TemporalNamespace}
	if tlsConfig != nil {
		dialOpts.ConnectionOptions = temporalclient.ConnectionOptions{TLS: tlsConfig}
		logger.Info().Msg("temporal mTLS enabled")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, taskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{&workflow.ErrorTypingInterceptor{}},
	})

	// Register activities
	services := core.NewServices(pool)
	relay := mailer.NewClient(cfg.MailerBaseURL, cfg.MailerAPIKey, cfg.EmailFrom)

	emailActivities := activity.NewEmail(services.Email, relay)
	w.RegisterActivity(emailActivities)

	retentionActivities := activity.NewRetention(pool, services.HealthLog)
	w.RegisterActivity(retentionActivities)

	// Register workflows
	w.RegisterWorkflow(workflow.FlushEmailQueueWorkflow)
	w.RegisterWorkflow(workflow.EmailRetentionWorkflow)
	w.RegisterWorkflow(workflow.AuditLogRetentionWorkflow)
	w.RegisterWorkflow(workflow.HealthLogRetentionWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", taskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	// Register cron schedules. Errors for already-existing schedules are
	// ignored so that re-deploys do not fail.
	registerCronSchedules(ctx, tc, taskQueue, cfg, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

type cronSchedule struct {
	id       string
	cron     string
	workflow interface{}
	args     []interface{}
}

func registerCronSchedules(ctx context.Context, tc temporalclient.Client, taskQueue string, cfg *config.Config, logger zerolog.Logger) {
	schedules := []cronSchedule{
		{
			id:       "email-flush-cron",
			cron:     "* * * * *",
			workflow: workflow.FlushEmailQueueWorkflow,
			args:     []interface{}{cfg.EmailBatchSize},
		},
		{
			id:       "email-retention-cron",
			cron:     "0 3 * * *",
			workflow: workflow.EmailRetentionWorkflow,
			args:     []interface{}{cfg.EmailRetentionDays},
		},
		{
			id:       "audit-log-retention-cron",
			cron:     "0 4 * * *",
			workflow: workflow.AuditLogRetentionWorkflow,
			args:     []interface{}{cfg.AuditLogRetentionDays},
		},
		{
			id:       "health-log-retention-cron",
			cron:     "0 5 * * *",
			workflow: workflow.HealthLogRetentionWorkflow,
			args:     []interface{}{cfg.HealthLogRetentionDays},
		},
	}

	scheduleClient := tc.ScheduleClient()

	for _, s := range schedules {
		_, err := scheduleClient.Create(ctx, temporalclient.ScheduleOptions{
			ID: s.id,
			Spec: temporalclient.ScheduleSpec{
				CronExpressions: []string{s.cron},
			},
			Action: &temporalclient.ScheduleWorkflowAction{
				ID:        s.id,
				Workflow:  s.workflow,
				Args:      s.args,
				TaskQueue: taskQueue,
			},
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already registered") {
				logger.Info().Str("id", s.id).Msg("cron schedule already exists, skipping")
			} else {
				logger.Fatal().Err(err).Str("id", s.id).Msg("failed to create cron schedule")
			}
		} else {
			logger.Info().Str("id", s.id).Str("cron", s.cron).Msg("created cron schedule")
		}
	}
}
