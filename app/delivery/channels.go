package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JordanSekky/cereal-convert/app/database"
)

var (
	// ErrDelivery marks transport failures: the send was attempted and
	// rejected.
	ErrDelivery = errors.New("delivery failure")

	// ErrNotConfigured marks a subscription whose user has no channel
	// that is both verified and enabled.
	ErrNotConfigured = errors.New("no eligible delivery channel")
)

// Channel identifies one delivery channel variant. The set is closed.
type Channel string

const (
	ChannelKindleEmail Channel = "kindle_email"
	ChannelPushover    Channel = "pushover"
)

// EmailSender sends a message with an optional file attachment.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string, attachment *Attachment) error
}

// PushSender sends a short notification to a registered key.
type PushSender interface {
	Send(ctx context.Context, key, title, message string) error
}

type Attachment struct {
	FileName string
	Data     []byte
}

// Group describes one delivered batch for message composition.
type Group struct {
	BookName     string
	Author       string
	FirstChapter string
	LastChapter  string
	Count        int
}

// Subject renders the email subject / push title for the group.
func (g Group) Subject() string {
	if g.Count == 1 {
		return fmt.Sprintf("New Chapter of %s: %s", g.BookName, g.FirstChapter)
	}
	return fmt.Sprintf("New Chapters of %s: %s - %s", g.BookName, g.FirstChapter, g.LastChapter)
}

func (g Group) pushMessage() string {
	if g.Count == 1 {
		return fmt.Sprintf("A new chapter of %s by %s has been released: %s",
			g.BookName, g.Author, g.FirstChapter)
	}
	return fmt.Sprintf("%d new chapters of %s by %s have been released: %s - %s",
		g.Count, g.BookName, g.Author, g.FirstChapter, g.LastChapter)
}

// EligibleChannels returns the channels that are both verified and
// enabled for a user. A nil delivery method has no eligible channels.
func EligibleChannels(dm *database.DeliveryMethod) []Channel {
	if dm == nil {
		return nil
	}

	var channels []Channel
	if dm.GetKindleEmail() != nil {
		channels = append(channels, ChannelKindleEmail)
	}
	if dm.GetPushoverKey() != nil {
		channels = append(channels, ChannelPushover)
	}
	return channels
}

// Sender fans one converted artifact out to a user's eligible channels.
type Sender struct {
	email EmailSender
	push  PushSender
}

func NewSender(email EmailSender, push PushSender) *Sender {
	return &Sender{email: email, push: push}
}

// DeliverGroup sends the artifact to every eligible channel. Any channel
// failure fails the whole delivery so the group stays queued and is
// retried whole.
func (s *Sender) DeliverGroup(ctx context.Context, dm *database.DeliveryMethod, group Group, artifact []byte) error {
	channels := EligibleChannels(dm)
	if len(channels) == 0 {
		return ErrNotConfigured
	}

	for _, channel := range channels {
		var err error
		switch channel {
		case ChannelKindleEmail:
			attachment := &Attachment{
				FileName: group.Subject() + ".epub",
				Data:     artifact,
			}
			err = s.email.Send(ctx, *dm.GetKindleEmail(), group.Subject(), group.Subject(), attachment)
		case ChannelPushover:
			err = s.push.Send(ctx, *dm.GetPushoverKey(), group.Subject(), group.pushMessage())
		}
		if err != nil {
			return fmt.Errorf("deliver via %s for user %s: %v: %w", channel, dm.UserID, err, ErrDelivery)
		}

		slog.Debug("Group delivered", "channel", string(channel), "user", dm.UserID, "book", group.BookName, "count", group.Count)
	}

	return nil
}
