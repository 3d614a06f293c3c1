package notify

import "context"

// Email is one outbound transactional message.
type Email struct {
	To      []string
	Subject string
	HTML    string
}

// Mailer sends transactional email. Implementations hold one
// authenticated client reused across runs.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}
