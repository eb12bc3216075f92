// Package email defines the interface for transactional report delivery and
// provides two provider channels: an SMTP client (user + app-password pair)
// and a Resend-backed HTTPS client. Which one runs is a deployment choice —
// the dispatcher only ever sees the Sender interface.
package email

import (
	"context"
	"errors"
)

// ErrMissingCredentials is returned when the configured provider has no
// usable credentials. The send fails before any provider call is made.
var ErrMissingCredentials = errors.New("email: missing provider credentials")

// Attachment is a named binary attachment — in practice always the merged
// report PDF.
type Attachment struct {
	Filename string
	Content  []byte
}

// Message is a fully assembled transactional email.
type Message struct {
	To         []string
	Subject    string
	HTML       string
	Attachment *Attachment
}

// Sender is the interface the dispatcher uses to submit a message. Tests
// inject a stub that records calls without hitting the network.
type Sender interface {
	Send(ctx context.Context, m Message) error
}
