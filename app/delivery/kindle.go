package delivery

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/JordanSekky/cereal-convert/app/cfg"
)

var _ EmailSender = (*MailgunSender)(nil)

// MailgunSender delivers epub artifacts and verification messages to
// e-reader email addresses via Mailgun.
type MailgunSender struct {
	client *mailgun.MailgunImpl
	from   string
}

func NewMailgunSender() *MailgunSender {
	c := cfg.Get()

	return &MailgunSender{
		client: mailgun.NewMailgun(c.MailgunDomain, c.MailgunAPIKey),
		from:   c.FromAddress,
	}
}

func (s *MailgunSender) Send(ctx context.Context, to, subject, body string, attachment *Attachment) error {
	message := mailgun.NewMessage(s.from, subject, body, to)
	if attachment != nil {
		message.AddBufferAttachment(attachment.FileName, attachment.Data)
	}

	_, _, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("mailgun send to %s: %w", to, err)
	}
	return nil
}
