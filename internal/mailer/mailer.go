package mailer

import (
	"context"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is one outbound email.
type Message struct {
	ToEmail string `json:"to_email"`
	ToName  string `json:"to_name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers a message. Delivery is fire-and-forget from the caller's
// point of view: the worker logs failures and moves on.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGrid sends through the SendGrid v3 mail API.
type SendGrid struct {
	key  string
	from *sgmail.Email
}

// NewSendGrid creates a sender using the given API key and from address.
func NewSendGrid(key, fromName, fromEmail string) *SendGrid {
	return &SendGrid{key: key, from: sgmail.NewEmail(fromName, fromEmail)}
}

// Send delivers one message.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	m := sgmail.NewSingleEmail(s.from, msg.Subject, sgmail.NewEmail(msg.ToName, msg.ToEmail), msg.Body, "")
	req := sendgrid.GetRequest(s.key, "/v3/mail/send", "https://api.sendgrid.com")
	req.Method = "POST"
	req.Body = sgmail.GetRequestBody(m)
	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// Console logs messages instead of sending them; used when no API key is set.
type Console struct{}

// Send prints the message to the process log.
func (Console) Send(_ context.Context, msg Message) error {
	log.Printf("mail (console): to=%s subject=%q\n%s", msg.ToEmail, msg.Subject, msg.Body)
	return nil
}
