package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/voyara/platform/internal/api/request"
	"github.com/voyara/platform/internal/model"
)

// maxSendAttempts is how many times delivery is retried before a message
// is parked as failed.
const maxSendAttempts = 5

const emailColumns = `id, to_address, subject, body_text, body_html, status, attempts, last_error, queued_at, claimed_at, sent_at`

// EmailService manages the transactional email queue. The API enqueues;
// the worker claims, sends, and settles.
type EmailService struct {
	db DB
}

// NewEmailService creates a new EmailService.
func NewEmailService(db DB) *EmailService {
	return &EmailService{db: db}
}

// Enqueue inserts a message in queued state.
func (s *EmailService) Enqueue(ctx context.Context, msg *model.EmailMessage) error {
	msg.Status = model.EmailQueued
	_, err := s.db.Exec(ctx,
		`INSERT INTO email_queue (id, to_address, subject, body_text, body_html, status, attempts, queued_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, $7)`,
		msg.ID, msg.ToAddress, msg.Subject, msg.BodyText, msg.BodyHTML, msg.Status, msg.QueuedAt,
	)
	if err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}

func (s *EmailService) GetByID(ctx context.Context, id string) (*model.EmailMessage, error) {
	var m model.EmailMessage
	err := s.db.QueryRow(ctx,
		`SELECT `+emailColumns+` FROM email_queue WHERE id = $1`, id,
	).Scan(&m.ID, &m.ToAddress, &m.Subject, &m.BodyText, &m.BodyHTML, &m.Status, &m.Attempts, &m.LastError, &m.QueuedAt, &m.ClaimedAt, &m.SentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEmailNotFound
		}
		return nil, fmt.Errorf("get email %s: %w", id, err)
	}
	return &m, nil
}

// List retrieves queue entries with cursor-based pagination and an
// optional status filter, newest first.
func (s *EmailService) List(ctx context.Context, params request.ListParams) ([]model.EmailMessage, bool, error) {
	query := `SELECT ` + emailColumns + ` FROM email_queue WHERE 1=1`
	args := []any{}
	argIdx := 1

	if params.Search != "" {
		query += fmt.Sprintf(` AND (to_address ILIKE $%d OR subject ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.Cursor != "" {
		// Keyset on the sort key, anchored by the cursor row. Newest
		// first, so the next page is everything before the anchor.
		query += fmt.Sprintf(` AND (queued_at, id) < (SELECT queued_at, id FROM email_queue WHERE id = $%d)`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += ` ORDER BY queued_at DESC, id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	var msgs []model.EmailMessage
	for rows.Next() {
		var m model.EmailMessage
		if err := rows.Scan(&m.ID, &m.ToAddress, &m.Subject, &m.BodyText, &m.BodyHTML, &m.Status, &m.Attempts, &m.LastError, &m.QueuedAt, &m.ClaimedAt, &m.SentAt); err != nil {
			return nil, false, fmt.Errorf("scan email: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate emails: %w", err)
	}

	hasMore := len(msgs) > params.Limit
	if hasMore {
		msgs = msgs[:params.Limit]
	}
	return msgs, hasMore, nil
}

// Cancel withdraws a message that has not been claimed yet. Anything past
// queued state is reported as a conflict.
func (s *EmailService) Cancel(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE email_queue SET status = $1 WHERE id = $2 AND status = $3`,
		model.EmailCancelled, id, model.EmailQueued,
	)
	if err != nil {
		return fmt.Errorf("cancel email %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("email %s: %w", id, model.ErrEmailNotCancellable)
	}
	return nil
}

// ClaimBatch atomically moves up to limit queued messages to sending and
// returns them, oldest first. Concurrent claimers never receive the same
// row.
func (s *EmailService) ClaimBatch(ctx context.Context, limit int) ([]model.EmailMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`UPDATE email_queue SET status = $1, claimed_at = now()
		 WHERE id IN (
			SELECT id FROM email_queue WHERE status = $2
			ORDER BY queued_at ASC LIMIT $3
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+emailColumns,
		model.EmailSending, model.EmailQueued, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim email batch: %w", err)
	}
	defer rows.Close()

	var msgs []model.EmailMessage
	for rows.Next() {
		var m model.EmailMessage
		if err := rows.Scan(&m.ID, &m.ToAddress, &m.Subject, &m.BodyText, &m.BodyHTML, &m.Status, &m.Attempts, &m.LastError, &m.QueuedAt, &m.ClaimedAt, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan claimed email: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claimed emails: %w", err)
	}
	return msgs, nil
}

// MarkSent settles a delivered message.
func (s *EmailService) MarkSent(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE email_queue SET status = $1, sent_at = now(), last_error = NULL WHERE id = $2`,
		model.EmailSent, id,
	)
	if err != nil {
		return fmt.Errorf("mark email %s sent: %w", id, err)
	}
	return nil
}

// MarkFailed records a delivery failure. The message goes back to queued
// for another attempt until the attempt budget runs out, then parks as
// failed.
func (s *EmailService) MarkFailed(ctx context.Context, id, sendErr string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE email_queue SET
			attempts = attempts + 1,
			last_error = $1,
			claimed_at = NULL,
			status = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE $4 END
		 WHERE id = $5`,
		sendErr, maxSendAttempts, model.EmailFailed, model.EmailQueued, id,
	)
	if err != nil {
		return fmt.Errorf("mark email %s failed: %w", id, err)
	}
	return nil
}

// RequeueStuck moves sending rows whose claim is older than maxClaimAge
// back to queued. A worker that dies mid-batch leaves its claimed rows in
// sending forever; this returns them to the queue without burning an
// attempt.
func (s *EmailService) RequeueStuck(ctx context.Context, maxClaimAge time.Duration) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE email_queue SET status = $1, claimed_at = NULL
		 WHERE status = $2 AND claimed_at < now() - make_interval(secs => $3)`,
		model.EmailQueued, model.EmailSending, maxClaimAge.Seconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("requeue stuck emails: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeSentBefore deletes delivered messages older than the cutoff and
// reports how many went away.
func (s *EmailService) PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM email_queue WHERE status = $1 AND sent_at < $2`,
		model.EmailSent, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("purge sent emails: %w", err)
	}
	return tag.RowsAffected(), nil
}
