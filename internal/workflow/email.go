package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/voyara/platform/internal/model"
)

// stuckClaimAgeMinutes is how long a row may sit in sending before the
// flush cron treats its claimer as dead and requeues it. Well past the
// send activity timeout, so live deliveries are never reclaimed.
const stuckClaimAgeMinutes = 15

// FlushEmailQueueWorkflow drains one batch of queued messages. It runs on a
// per-minute cron schedule; each run claims a batch, delivers every message,
// and settles each one individually. A failed delivery never blocks the
// rest of the batch.
func FlushEmailQueueWorkflow(ctx workflow.Context, batchSize int) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	// Reclaim rows orphaned in sending by a worker that died mid-batch.
	// A requeue failure only logs; this run can still drain the queue.
	var requeued int64
	if err := workflow.ExecuteActivity(ctx, "RequeueStuckEmails", stuckClaimAgeMinutes).Get(ctx, &requeued); err != nil {
		logger.Error("failed to requeue stuck emails", "error", err)
	} else if requeued > 0 {
		logger.Info("requeued stuck emails", "count", requeued)
	}

	var batch []model.EmailMessage
	if err := workflow.ExecuteActivity(ctx, "ClaimEmailBatch", batchSize).Get(ctx, &batch); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	logger.Info("flushing email queue", "claimed", len(batch))

	// Delivery gets a single Temporal attempt: the queue's own attempt
	// budget decides retries across cron runs, so a flaky relay does not
	// burn the whole run re-sending one message.
	sendCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	for _, msg := range batch {
		if err := workflow.ExecuteActivity(sendCtx, "SendEmail", msg).Get(ctx, nil); err != nil {
			logger.Error("email delivery failed", "emailID", msg.ID, "error", err)
			if err := workflow.ExecuteActivity(ctx, "MarkEmailFailed", msg.ID, err.Error()).Get(ctx, nil); err != nil {
				logger.Error("failed to record delivery failure", "emailID", msg.ID, "error", err)
			}
			// Continue delivering the rest of the batch.
			continue
		}
		if err := workflow.ExecuteActivity(ctx, "MarkEmailSent", msg.ID).Get(ctx, nil); err != nil {
			logger.Error("failed to record delivery", "emailID", msg.ID, "error", err)
		}
	}

	return nil
}

// EmailRetentionWorkflow deletes delivered messages older than the retention
// period.
func EmailRetentionWorkflow(ctx workflow.Context, retentionDays int) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var deleted int64
	if err := workflow.ExecuteActivity(ctx, "PurgeSentEmails", retentionDays).Get(ctx, &deleted); err != nil {
		return err
	}

	logger := workflow.GetLogger(ctx)
	logger.Info("purged sent emails", "deleted", deleted, "retentionDays", retentionDays)

	return nil
}
