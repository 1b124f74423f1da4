package delivery

import (
	"context"
	"fmt"

	"github.com/gregdel/pushover"

	"github.com/JordanSekky/cereal-convert/app/cfg"
)

var _ PushSender = (*PushoverSender)(nil)

// PushoverSender delivers short notifications to registered Pushover
// keys.
type PushoverSender struct {
	app *pushover.Pushover
}

func NewPushoverSender() *PushoverSender {
	return &PushoverSender{
		app: pushover.New(cfg.Get().PushoverToken),
	}
}

func (s *PushoverSender) Send(ctx context.Context, key, title, message string) error {
	recipient := pushover.NewRecipient(key)
	msg := pushover.NewMessageWithTitle(message, title)

	_, err := s.app.SendMessage(msg, recipient)
	if err != nil {
		return fmt.Errorf("pushover send: %w", err)
	}
	return nil
}
