package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// AuditLogRetentionWorkflow deletes audit log entries older than the
// specified days.
func AuditLogRetentionWorkflow(ctx workflow.Context, retentionDays int) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var deleted int64
	if err := workflow.ExecuteActivity(ctx, "DeleteOldAuditLogs", retentionDays).Get(ctx, &deleted); err != nil {
		return err
	}

	logger := workflow.GetLogger(ctx)
	logger.Info("cleaned up old audit logs", "deleted", deleted, "retentionDays", retentionDays)

	return nil
}

// HealthLogRetentionWorkflow deletes provider health check history older
// than the specified days.
func HealthLogRetentionWorkflow(ctx workflow.Context, retentionDays int) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var deleted int64
	if err := workflow.ExecuteActivity(ctx, "DeleteOldHealthLogs", retentionDays).Get(ctx, &deleted); err != nil {
		return err
	}

	logger := workflow.GetLogger(ctx)
	logger.Info("cleaned up old health logs", "deleted", deleted, "retentionDays", retentionDays)

	return nil
}
