package mail

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() *Message {
	return &Message{
		From:     mail.Address{Name: "Meeting Scheduler", Address: "owner@example.com"},
		To:       []mail.Address{{Name: "Ada", Address: "ada@example.com"}},
		Subject:  "Meeting Scheduled - 3/10/2025",
		TextBody: "Hello Ada",
		HTMLBody: "<p>Hello Ada</p>",
		Date:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMessage_Validate(t *testing.T) {
	assert.NoError(t, testMessage().Validate())

	err := (&Message{}).Validate()
	require.Error(t, err)
	for _, want := range []string{"sender", "recipient", "subject", "body"} {
		assert.Contains(t, err.Error(), want)
	}

	msg := testMessage()
	msg.To = []mail.Address{{Address: "not-an-address"}}
	assert.ErrorContains(t, msg.Validate(), "invalid recipient")
}

func TestBuild_Alternative(t *testing.T) {
	enc, err := Build(testMessage())
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(enc.Raw))
	require.NoError(t, err)

	assert.Equal(t, `"Meeting Scheduler" <owner@example.com>`, parsed.Header.Get("From"))
	assert.Equal(t, `"Ada" <ada@example.com>`, parsed.Header.Get("To"))
	assert.Equal(t, "Meeting Scheduled - 3/10/2025", parsed.Header.Get("Subject"))
	assert.Equal(t, enc.MessageID, parsed.Header.Get("Message-Id"))
	assert.True(t, strings.HasSuffix(enc.MessageID, "@example.com>"))

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(parsed.Body, params["boundary"])
	first, err := mr.NextPart()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.Header.Get("Content-Type"), "text/plain"))
	text, err := io.ReadAll(first)
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada", string(text))

	second, err := mr.NextPart()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(second.Header.Get("Content-Type"), "text/html"))
}

func TestBuild_SingleBody(t *testing.T) {
	msg := testMessage()
	msg.TextBody = ""

	enc, err := Build(msg)
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(enc.Raw))
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=UTF-8", parsed.Header.Get("Content-Type"))
	assert.Equal(t, "quoted-printable", parsed.Header.Get("Content-Transfer-Encoding"))
}

func TestBuild_WithAttachment(t *testing.T) {
	msg := testMessage()
	ics := []byte(strings.Repeat("BEGIN:VCALENDAR\r\n", 10))
	msg.Attachments = []Attachment{{Filename: "invite.ics", ContentType: "text/calendar; method=PUBLISH", Data: ics}}

	enc, err := Build(msg)
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(enc.Raw))
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(parsed.Body, params["boundary"])
	body, err := mr.NextPart()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(body.Header.Get("Content-Type"), "multipart/alternative"))

	att, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "invite.ics", att.FileName())
	assert.Equal(t, "base64", att.Header.Get("Content-Transfer-Encoding"))

	// multipart.Reader does not decode base64 transfer encoding
	raw, err := io.ReadAll(att)
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBuild_NonASCIISubject(t *testing.T) {
	msg := testMessage()
	msg.Subject = "Besprechung mit Jürgen"

	enc, err := Build(msg)
	require.NoError(t, err)
	assert.Contains(t, string(enc.Raw), "Subject: =?UTF-8?q?")

	parsed, err := mail.ReadMessage(bytes.NewReader(enc.Raw))
	require.NoError(t, err)
	decoded, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Besprechung mit Jürgen", decoded)
}

func TestBuild_Headers(t *testing.T) {
	msg := testMessage()
	msg.ReplyTo = &mail.Address{Name: "Front Desk", Address: "desk@example.com"}

	enc, err := Build(msg)
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(enc.Raw))
	require.NoError(t, err)
	assert.Equal(t, "1.0", parsed.Header.Get("Mime-Version"))
	assert.Equal(t, `"Front Desk" <desk@example.com>`, parsed.Header.Get("Reply-To"))

	date, err := parsed.Header.Date()
	require.NoError(t, err)
	assert.True(t, msg.Date.Equal(date))
}

func TestBuild_Invalid(t *testing.T) {
	_, err := Build(&Message{})
	assert.Error(t, err)
}

func TestNewMessageID(t *testing.T) {
	assert.True(t, strings.HasSuffix(newMessageID("bad"), "@meetingbooker.local"))
	assert.NotEqual(t, newMessageID("a@b.c"), newMessageID("a@b.c"))
}
