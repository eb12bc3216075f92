package email

import (
	"context"
	"fmt"
	"io"
	"time"

	"gopkg.in/gomail.v2"
)

// smtpClient delivers via an SSL SMTP session, matching the Gmail
// app-password setup: implicit TLS on port 465, no STARTTLS upgrade.
// The dial happens per send — no verify round-trip first, so a broken
// transport surfaces at send time rather than adding latency up front.
type smtpClient struct {
	host string
	port int
	user string
	pass string

	// dialTimeout bounds the whole dial-and-send; gomail has no per-phase
	// timeouts, so the context deadline is enforced around the call.
	dialTimeout time.Duration
}

// NewSMTPClient returns a Sender that delivers through host:port using the
// user/app-password pair. The user doubles as the sender address.
func NewSMTPClient(host string, port int, user, pass string) Sender {
	return &smtpClient{
		host:        host,
		port:        port,
		user:        user,
		pass:        pass,
		dialTimeout: 30 * time.Second,
	}
}

func (c *smtpClient) Send(ctx context.Context, m Message) error {
	if c.user == "" || c.pass == "" {
		return fmt.Errorf("%w: SMTP user/app-password pair is not set", ErrMissingCredentials)
	}
	if len(m.To) == 0 {
		return fmt.Errorf("email: no recipients")
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", c.user, "EquityList SAFE Calculator")
	msg.SetHeader("To", m.To...)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/html", m.HTML)

	if m.Attachment != nil {
		content := m.Attachment.Content
		msg.Attach(m.Attachment.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
	}

	dialer := gomail.NewDialer(c.host, c.port, c.user, c.pass)
	dialer.SSL = c.port == 465

	// gomail is not context-aware; run the send in a goroutine and race it
	// against the caller's deadline so a stalled dial cannot pin a worker.
	done := make(chan error, 1)
	go func() { done <- dialer.DialAndSend(msg) }()

	timeout := c.dialTimeout
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until < timeout {
			timeout = until
		}
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("email: smtp send: %w", err)
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("email: smtp send timed out after %s", timeout)
	case <-ctx.Done():
		return fmt.Errorf("email: smtp send: %w", ctx.Err())
	}
}
