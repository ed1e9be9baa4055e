package request

// EnqueueEmail holds the request body for queueing a transactional email.
// Bodies arrive pre-rendered; the platform does not template.
type EnqueueEmail struct {
	To       string  `json:"to" validate:"required,email"`
	Subject  string  `json:"subject" validate:"required,min=1,max=255"`
	BodyText string  `json:"body_text" validate:"required"`
	BodyHTML *string `json:"body_html"`
}
