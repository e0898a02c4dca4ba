package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// gomailSender delivers through SMTP with a bounded timeout so a hung
// delivery channel cannot stall the operator-facing request.
type gomailSender struct {
	timeout time.Duration
	send    func(srv Server, m *gomail.Message) error
}

func NewGomailSender(timeout time.Duration) Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &gomailSender{timeout: timeout, send: smtpSend}
}

func smtpSend(srv Server, m *gomail.Message) error {
	dialer := gomail.NewDialer(srv.Host, srv.Port, srv.User, srv.Password)
	return dialer.DialAndSend(m)
}

func (s *gomailSender) Send(ctx context.Context, srv Server, msg *Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.send(srv, m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send timed out after %s", s.timeout)
	}
}
