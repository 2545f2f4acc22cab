// Package mailer provides a provider-agnostic interface for sending
// transactional email, with a Postmark-backed implementation for production
// and a log-only sender for development.
package mailer

import "context"

// Sender delivers a single transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message represents an outbound email.
type Message struct {
	To       string
	Subject  string
	BodyHTML string
	BodyText string
	Tag      string
}
