package mail

import (
	"bytes"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"
)

// Message is a single outgoing email.
type Message struct {
	From    mail.Address
	To      []mail.Address
	ReplyTo *mail.Address
	Subject string

	// At least one of TextBody and HTMLBody must be set.
	TextBody string
	HTMLBody string

	Attachments []Attachment

	// Date defaults to the time the MIME body is built.
	Date time.Time
}

// Attachment is a file attached to a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Recipients returns the bare addresses of all recipients.
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.To))
	for _, a := range m.To {
		out = append(out, a.Address)
	}
	return out
}

// Validate checks the fields every transport needs.
func (m *Message) Validate() error {
	var errs []error
	if m.From.Address == "" {
		errs = append(errs, errors.New("sender address is required"))
	}
	if len(m.To) == 0 {
		errs = append(errs, errors.New("at least one recipient is required"))
	}
	for _, a := range m.To {
		if _, err := mail.ParseAddress(a.Address); err != nil {
			errs = append(errs, fmt.Errorf("invalid recipient %q: %w", a.Address, err))
		}
	}
	if m.Subject == "" {
		errs = append(errs, errors.New("subject is required"))
	}
	if m.TextBody == "" && m.HTMLBody == "" {
		errs = append(errs, errors.New("body is required"))
	}
	return errors.Join(errs...)
}

// Encoded is a message rendered to RFC 5322 bytes.
type Encoded struct {
	MessageID string
	Raw       []byte
}

// Build renders msg as a MIME message. Text and HTML bodies become a
// multipart/alternative part; attachments wrap it in multipart/mixed.
func Build(msg *Message) (*Encoded, error) {
	m, err := newMsg(msg)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render message: %w", err)
	}
	return &Encoded{MessageID: m.GetMessageID(), Raw: buf.Bytes()}, nil
}

// newMsg converts msg into a go-mail message with fixed Date and Message-ID
// headers, so every transport reports the same ID it sent.
func newMsg(msg *Message) (*gomail.Msg, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	m := gomail.NewMsg(gomail.WithNoDefaultUserAgent())

	from := msg.From
	m.FromMailAddress(&from)
	to := make([]*mail.Address, 0, len(msg.To))
	for i := range msg.To {
		addr := msg.To[i]
		to = append(to, &addr)
	}
	m.ToMailAddress(to...)
	if msg.ReplyTo != nil {
		replyTo := *msg.ReplyTo
		m.ReplyToMailAddress(&replyTo)
	}
	m.Subject(msg.Subject)

	date := msg.Date
	if date.IsZero() {
		date = time.Now()
	}
	m.SetDateWithValue(date)
	m.SetMessageIDWithValue(newMessageID(msg.From.Address))

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBodyString(gomail.TypeTextPlain, msg.TextBody)
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBodyString(gomail.TypeTextHTML, msg.HTMLBody)
	default:
		m.SetBodyString(gomail.TypeTextPlain, msg.TextBody)
	}

	for _, att := range msg.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := m.AttachReader(att.Filename, bytes.NewReader(att.Data),
			gomail.WithFileContentType(gomail.ContentType(contentType))); err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", att.Filename, err)
		}
	}
	return m, nil
}

// newMessageID returns an ID local part and domain without angle brackets.
func newMessageID(from string) string {
	domain := "meetingbooker.local"
	if _, d, ok := strings.Cut(from, "@"); ok && d != "" {
		domain = d
	}
	return uuid.NewString() + "@" + domain
}
