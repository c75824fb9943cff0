// Package mail is the outbound notification transport boundary.
package mail

import "context"

// Message is one outbound e-mail.
type Message struct {
	From     string
	To       []string
	Subject  string
	HTMLBody string
}

// Mailer sends messages. A send error leaves the caller free to retry; the
// transport itself performs no retries.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	IsConfigured() bool
}
