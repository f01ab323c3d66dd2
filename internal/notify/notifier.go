package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/teemow/meetingbooker/internal/logging"
	mailer "github.com/teemow/meetingbooker/internal/mail"
	"github.com/teemow/meetingbooker/internal/scheduling"
)

// DefaultSenderName is the display name of the sender.
const DefaultSenderName = "Meeting Scheduler"

// DefaultSignature closes every confirmation.
const DefaultSignature = "Your Meeting Team"

// Config configures a Notifier.
type Config struct {
	From    mail.Address
	ReplyTo *mail.Address
	// Location renders the meeting time. Defaults to UTC.
	Location *time.Location
	// AttachICS adds an invite.ics attachment.
	AttachICS bool
	Signature string
}

// Validate checks the sender.
func (c Config) Validate() error {
	if c.From.Address == "" {
		return errors.New("sender address is required")
	}
	if _, err := mail.ParseAddress(c.From.Address); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", c.From.Address, err)
	}
	return nil
}

// Notifier sends meeting confirmations through a mail transport.
type Notifier struct {
	transport mailer.Transport
	config    Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewNotifier creates a Notifier. A nil logger falls back to slog.Default().
func NewNotifier(transport mailer.Transport, config Config, logger *slog.Logger) (*Notifier, error) {
	if transport == nil {
		return nil, errors.New("mail transport is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.From.Name == "" {
		config.From.Name = DefaultSenderName
	}
	if config.Signature == "" {
		config.Signature = DefaultSignature
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		transport: transport,
		config:    config,
		logger:    logging.WithComponent(logger, "notifier"),
		now:       time.Now,
	}, nil
}

// SendConfirmation composes and sends the confirmation for event. It makes a
// single attempt and reports whether the transport accepted the message.
func (n *Notifier) SendConfirmation(ctx context.Context, req scheduling.MeetingRequest, event scheduling.EventResult) bool {
	logger := n.logger.With(
		logging.UserHash(req.AttendeeEmail),
		logging.EventID(event.EventID),
		logging.Transport(n.transport.Name()),
	)

	msg, err := n.Compose(req, event)
	if err != nil {
		logger.WarnContext(ctx, "failed to compose confirmation", logging.Err(err))
		return false
	}

	id, err := n.transport.Send(ctx, msg)
	if err != nil {
		logger.WarnContext(ctx, "failed to send confirmation",
			slog.Bool("temporary", mailer.IsTemporary(err)),
			logging.Err(err))
		return false
	}
	logger.InfoContext(ctx, "confirmation sent", slog.String("message_id", id))
	return true
}

// Compose builds the confirmation message without sending it.
func (n *Notifier) Compose(req scheduling.MeetingRequest, event scheduling.EventResult) (*mailer.Message, error) {
	c := NewConfirmation(req, event, n.config.Location, n.config.Signature)

	html, text, err := Render(c)
	if err != nil {
		return nil, fmt.Errorf("failed to render confirmation: %w", err)
	}

	now := n.now()
	msg := &mailer.Message{
		From:     n.config.From,
		To:       []mail.Address{{Name: req.AttendeeName, Address: req.AttendeeEmail}},
		ReplyTo:  n.config.ReplyTo,
		Subject:  c.Subject(n.config.Location),
		TextBody: text,
		HTMLBody: html,
		Date:     now,
	}

	if n.config.AttachICS {
		uid := event.ICalUID
		if uid == "" {
			uid = event.EventID + "@meetingbooker"
		}
		ics, err := BuildICS(c, uid, n.config.From, now)
		if err != nil {
			return nil, err
		}
		msg.Attachments = append(msg.Attachments, mailer.Attachment{
			Filename:    icsFilename,
			ContentType: icsContentType,
			Data:        ics,
		})
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}
