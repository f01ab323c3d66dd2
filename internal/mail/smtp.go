package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strconv"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// Gmail's submission relay, used when no host is configured.
const (
	DefaultSMTPHost = "smtp.gmail.com"
	DefaultSMTPPort = 587
)

// SMTPTransport submits messages to an authenticated SMTP relay.
// Port 465 uses implicit TLS; other ports upgrade with STARTTLS when offered.
type SMTPTransport struct {
	Host     string
	Port     int
	Username string
	Password string
	// Timeout bounds the whole session when ctx carries no deadline.
	Timeout time.Duration
	// TLSConfig overrides the TLS settings, mainly for tests.
	TLSConfig *tls.Config
	// RequireTLS refuses to authenticate or send over an unencrypted connection.
	RequireTLS bool
}

func (t *SMTPTransport) Name() string { return TransportSMTP }

func (t *SMTPTransport) host() string {
	if t.Host == "" {
		return DefaultSMTPHost
	}
	return t.Host
}

func (t *SMTPTransport) port() int {
	if t.Port == 0 {
		return DefaultSMTPPort
	}
	return t.Port
}

func (t *SMTPTransport) addr() string {
	return net.JoinHostPort(t.host(), strconv.Itoa(t.port()))
}

func (t *SMTPTransport) implicitTLS() bool {
	return t.port() == gomail.DefaultPortSSL
}

func (t *SMTPTransport) tlsConfig() *tls.Config {
	if t.TLSConfig != nil {
		return t.TLSConfig
	}
	return &tls.Config{ServerName: t.host(), MinVersion: tls.VersionTLS12}
}

func (t *SMTPTransport) Send(ctx context.Context, msg *Message) (string, error) {
	m, err := newMsg(msg)
	if err != nil {
		return "", &TransportError{Transport: TransportSMTP, Err: err}
	}

	if err := t.send(ctx, m); err != nil {
		return "", smtpError(err)
	}
	return m.GetMessageID(), nil
}

func (t *SMTPTransport) send(ctx context.Context, m *gomail.Msg) error {
	if t.Timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t.Timeout)
			defer cancel()
		}
	}

	var stop func() bool
	defer func() {
		if stop != nil {
			stop()
		}
	}()

	// go-mail bounds dialing only; the session follows ctx from here on.
	dial := func(dialCtx context.Context, network, addr string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(dialCtx, network, addr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetDeadline(deadline)
		}
		stop = context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
		if t.implicitTLS() {
			return tls.Client(conn, t.tlsConfig()), nil
		}
		return conn, nil
	}

	opts := []gomail.Option{
		gomail.WithPort(t.port()),
		gomail.WithDialContextFunc(dial),
		gomail.WithTLSConfig(t.tlsConfig()),
		gomail.WithoutNoop(),
	}
	switch {
	case t.implicitTLS():
		opts = append(opts, gomail.WithSSL())
	case t.RequireTLS:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if t.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(t.Timeout))
	}
	if t.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(t.Username),
			gomail.WithPassword(t.Password),
		)
	}

	client, err := gomail.NewClient(t.host(), opts...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, m)
}

// smtpError classifies err: 4xx replies and network failures are temporary.
func smtpError(err error) *TransportError {
	te := &TransportError{Transport: TransportSMTP, Err: err}

	var sendErr *gomail.SendError
	var protoErr *textproto.Error
	var netErr net.Error
	switch {
	case errors.As(err, &sendErr):
		if code := sendErr.ErrorCode(); code != 0 {
			te.Code = strconv.Itoa(code)
		}
		te.Temporary = sendErr.IsTemp()
	case errors.As(err, &protoErr):
		te.Code = strconv.Itoa(protoErr.Code)
		te.Temporary = protoErr.Code >= 400 && protoErr.Code < 500
	case errors.As(err, &netErr), errors.Is(err, context.DeadlineExceeded):
		te.Temporary = true
	}
	return te
}
