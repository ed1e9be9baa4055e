package model

import "time"

// Email queue statuses.
const (
	EmailQueued    = "queued"
	EmailSending   = "sending"
	EmailSent      = "sent"
	EmailFailed    = "failed"
	EmailCancelled = "cancelled"
)

// EmailMessage is a queued transactional email. Bodies arrive pre-rendered
// from the caller; the platform queues and delivers, it does not template.
type EmailMessage struct {
	ID        string     `json:"id" db:"id"`
	ToAddress string     `json:"to_address" db:"to_address"`
	Subject   string     `json:"subject" db:"subject"`
	BodyText  string     `json:"body_text" db:"body_text"`
	BodyHTML  *string    `json:"body_html,omitempty" db:"body_html"`
	Status    string     `json:"status" db:"status"`
	Attempts  int        `json:"attempts" db:"attempts"`
	LastError *string    `json:"last_error,omitempty" db:"last_error"`
	QueuedAt  time.Time  `json:"queued_at" db:"queued_at"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty" db:"claimed_at"`
	SentAt    *time.Time `json:"sent_at,omitempty" db:"sent_at"`
}
