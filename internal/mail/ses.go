package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
)

// SESAPI is the subset of the SES v2 client used by SESTransport.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESTransport sends raw MIME messages through Amazon SES v2.
type SESTransport struct {
	api SESAPI
	// ConfigurationSet is passed to SES when set.
	ConfigurationSet string
}

// NewSESTransport wraps an existing SES client.
func NewSESTransport(api SESAPI) *SESTransport {
	return &SESTransport{api: api}
}

// NewSESTransportFromEnv loads AWS credentials from the default chain.
func NewSESTransportFromEnv(ctx context.Context, region string) (*SESTransport, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESTransport(sesv2.NewFromConfig(cfg)), nil
}

func (t *SESTransport) Name() string { return TransportSES }

func (t *SESTransport) Send(ctx context.Context, msg *Message) (string, error) {
	enc, err := Build(msg)
	if err != nil {
		return "", &TransportError{Transport: TransportSES, Err: err}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From.Address),
		Destination:      &types.Destination{ToAddresses: msg.Recipients()},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: enc.Raw},
		},
	}
	if t.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(t.ConfigurationSet)
	}

	out, err := t.api.SendEmail(ctx, input)
	if err != nil {
		te := &TransportError{Transport: TransportSES, Err: fmt.Errorf("failed to send email: %w", err)}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			te.Code = apiErr.ErrorCode()
			te.Temporary = isTemporarySESCode(te.Code)
		} else if !errors.Is(err, context.Canceled) {
			te.Temporary = true
		}
		return "", te
	}
	return aws.ToString(out.MessageId), nil
}

func isTemporarySESCode(code string) bool {
	switch code {
	case "Throttling", "ThrottlingException", "TooManyRequestsException",
		"LimitExceededException", "ServiceUnavailable", "InternalFailure":
		return true
	}
	return false
}
