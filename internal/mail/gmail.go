package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GmailTransport sends messages through the Gmail API as the authorized user.
type GmailTransport struct {
	svc *gmail.Service
}

// NewGmailTransport creates a transport on top of an authenticated HTTP client.
func NewGmailTransport(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*GmailTransport, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &GmailTransport{svc: svc}, nil
}

func (t *GmailTransport) Name() string { return TransportGmail }

func (t *GmailTransport) Send(ctx context.Context, msg *Message) (string, error) {
	enc, err := Build(msg)
	if err != nil {
		return "", &TransportError{Transport: TransportGmail, Err: err}
	}

	sent, err := t.svc.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(enc.Raw),
	}).Context(ctx).Do()
	if err != nil {
		te := &TransportError{Transport: TransportGmail, Err: fmt.Errorf("failed to send email: %w", err)}
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			te.Code = fmt.Sprintf("%d", apiErr.Code)
			te.Temporary = apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
		} else {
			te.Temporary = true
		}
		return "", te
	}
	return sent.Id, nil
}
