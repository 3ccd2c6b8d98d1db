// Package smtp delivers alert emails through an SMTP relay.
package smtp

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Notifier implements alert.Notifier over SMTP.
type Notifier struct {
	from string
	send func(...*gomail.Message) error
}

// NewNotifier creates a Notifier that dials host:port for every message.
// Empty user disables SMTP authentication.
func NewNotifier(host string, port int, user, password, from string) *Notifier {
	d := gomail.NewDialer(host, port, user, password)
	return &Notifier{from: from, send: d.DialAndSend}
}

// Send delivers one plain-text message to recipient.
func (n *Notifier) Send(ctx context.Context, subject, body, recipient string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.send(n.message(subject, body, recipient)); err != nil {
		return fmt.Errorf("send mail to %s: %w", recipient, err)
	}
	return nil
}

func (n *Notifier) message(subject, body, recipient string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}
