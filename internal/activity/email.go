package activity

import (
	"context"
	"time"

	"github.com/voyara/platform/internal/core"
	"github.com/voyara/platform/internal/model"
)

// Sender delivers one message to the mail relay. *mailer.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, msg *model.EmailMessage) error
}

// Email contains activities that drain and maintain the email queue.
type Email struct {
	emails *core.EmailService
	mailer Sender
}

// NewEmail creates a new Email activity struct.
func NewEmail(emails *core.EmailService, mailer Sender) *Email {
	return &Email{emails: emails, mailer: mailer}
}

// ClaimEmailBatch moves up to limit queued messages to sending and returns
// them. Claimed rows are invisible to concurrent workers.
func (a *Email) ClaimEmailBatch(ctx context.Context, limit int) ([]model.EmailMessage, error) {
	return a.emails.ClaimBatch(ctx, limit)
}

// RequeueStuckEmails returns sending rows claimed more than maxClaimAge
// minutes ago to the queue. Covers workers that died mid-batch.
func (a *Email) RequeueStuckEmails(ctx context.Context, maxClaimAgeMinutes int) (int64, error) {
	return a.emails.RequeueStuck(ctx, time.Duration(maxClaimAgeMinutes)*time.Minute)
}

// SendEmail delivers one claimed message through the mail relay.
func (a *Email) SendEmail(ctx context.Context, msg model.EmailMessage) error {
	return a.mailer.Send(ctx, &msg)
}

// MarkEmailSent settles a delivered message.
func (a *Email) MarkEmailSent(ctx context.Context, id string) error {
	return a.emails.MarkSent(ctx, id)
}

// MarkEmailFailed records a delivery failure. The queue's attempt budget
// decides whether the message goes back to queued or parks as failed.
func (a *Email) MarkEmailFailed(ctx context.Context, id, sendErr string) error {
	return a.emails.MarkFailed(ctx, id, sendErr)
}

// PurgeSentEmails deletes messages delivered more than retentionDays ago
// and returns the count of deleted rows.
func (a *Email) PurgeSentEmails(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return a.emails.PurgeSentBefore(ctx, cutoff)
}
