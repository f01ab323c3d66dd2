package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP is a minimal SMTP server accepting one message per session.
type fakeSMTP struct {
	ln         net.Listener
	auth       bool
	rcptReply  int
	silent     bool
	mu         sync.Mutex
	from       string
	rcpts      []string
	data       string
	authedUser string
}

func startFakeSMTP(t *testing.T, configure func(*fakeSMTP)) *fakeSMTP {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeSMTP{ln: ln}
	if configure != nil {
		configure(s)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *fakeSMTP) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) serve(conn net.Conn) {
	defer conn.Close()
	if s.silent {
		time.Sleep(2 * time.Second)
		return
	}

	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 fake ESMTP")

	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, "EHLO"):
			_ = tp.PrintfLine("250-fake greets you")
			if s.auth {
				_ = tp.PrintfLine("250-AUTH PLAIN")
			}
			_ = tp.PrintfLine("250 8BITMIME")
		case strings.HasPrefix(upper, "HELO"):
			_ = tp.PrintfLine("250 fake")
		case strings.HasPrefix(upper, "AUTH PLAIN"):
			decoded, _ := base64.StdEncoding.DecodeString(strings.TrimSpace(line[len("AUTH PLAIN"):]))
			parts := strings.Split(string(decoded), "\x00")
			if len(parts) == 3 && parts[2] == "secret" {
				s.mu.Lock()
				s.authedUser = parts[1]
				s.mu.Unlock()
				_ = tp.PrintfLine("235 authenticated")
			} else {
				_ = tp.PrintfLine("535 bad credentials")
			}
		case strings.HasPrefix(upper, "MAIL FROM:"):
			s.mu.Lock()
			s.from = extractPath(line)
			s.mu.Unlock()
			_ = tp.PrintfLine("250 ok")
		case strings.HasPrefix(upper, "RCPT TO:"):
			if s.rcptReply != 0 {
				_ = tp.PrintfLine("%d recipient rejected", s.rcptReply)
				continue
			}
			s.mu.Lock()
			s.rcpts = append(s.rcpts, extractPath(line))
			s.mu.Unlock()
			_ = tp.PrintfLine("250 ok")
		case upper == "DATA":
			_ = tp.PrintfLine("354 go ahead")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.data = string(data)
			s.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case upper == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("250 ok")
		}
	}
}

func extractPath(line string) string {
	start := strings.Index(line, "<")
	end := strings.Index(line, ">")
	if start < 0 || end < start {
		return ""
	}
	return line[start+1 : end]
}

func TestSMTPTransport_Send(t *testing.T) {
	srv := startFakeSMTP(t, func(s *fakeSMTP) { s.auth = true })

	tr := &SMTPTransport{
		Host:     "127.0.0.1",
		Port:     srv.port(),
		Username: "owner@example.com",
		Password: "secret",
		Timeout:  5 * time.Second,
	}
	assert.Equal(t, TransportSMTP, tr.Name())

	id, err := tr.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "<"))

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, "owner@example.com", srv.authedUser)
	assert.Equal(t, "owner@example.com", srv.from)
	assert.Equal(t, []string{"ada@example.com"}, srv.rcpts)
	assert.Contains(t, srv.data, "Subject: Meeting Scheduled - 3/10/2025")
	assert.Contains(t, srv.data, id)
}

func TestSMTPTransport_BadCredentials(t *testing.T) {
	srv := startFakeSMTP(t, func(s *fakeSMTP) { s.auth = true })

	tr := &SMTPTransport{Host: "127.0.0.1", Port: srv.port(), Username: "owner@example.com", Password: "wrong"}
	_, err := tr.Send(context.Background(), testMessage())
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "535", te.Code)
	assert.False(t, te.Temporary)
}

func TestSMTPTransport_NoAuthAdvertised(t *testing.T) {
	srv := startFakeSMTP(t, nil)

	tr := &SMTPTransport{Host: "127.0.0.1", Port: srv.port(), Username: "owner@example.com", Password: "secret"}
	_, err := tr.Send(context.Background(), testMessage())
	assert.ErrorContains(t, err, "does not support SMTP AUTH")
}

func TestSMTPTransport_RequireTLS(t *testing.T) {
	srv := startFakeSMTP(t, nil)

	tr := &SMTPTransport{Host: "127.0.0.1", Port: srv.port(), RequireTLS: true}
	_, err := tr.Send(context.Background(), testMessage())
	assert.ErrorContains(t, err, "does not support STARTTLS")
}

func TestSMTPTransport_RecipientRejected(t *testing.T) {
	tests := []struct {
		reply     int
		temporary bool
	}{
		{450, true},
		{550, false},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.reply), func(t *testing.T) {
			srv := startFakeSMTP(t, func(s *fakeSMTP) { s.rcptReply = tt.reply })

			tr := &SMTPTransport{Host: "127.0.0.1", Port: srv.port()}
			_, err := tr.Send(context.Background(), testMessage())
			require.Error(t, err)

			var te *TransportError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, strconv.Itoa(tt.reply), te.Code)
			assert.Equal(t, tt.temporary, te.Temporary)
			assert.Equal(t, tt.temporary, IsTemporary(err))
		})
	}
}

func TestSMTPTransport_Timeout(t *testing.T) {
	srv := startFakeSMTP(t, func(s *fakeSMTP) { s.silent = true })

	tr := &SMTPTransport{Host: "127.0.0.1", Port: srv.port(), Timeout: 100 * time.Millisecond}

	start := time.Now()
	_, err := tr.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, IsTemporary(err))
}

func TestSMTPTransport_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	tr := &SMTPTransport{Host: "127.0.0.1", Port: port, Timeout: time.Second}
	_, err = tr.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.True(t, IsTemporary(err))
}

func TestSMTPTransport_InvalidMessage(t *testing.T) {
	tr := &SMTPTransport{}
	_, err := tr.Send(context.Background(), &Message{})
	require.Error(t, err)
	assert.False(t, IsTemporary(err))
}

func TestSMTPTransport_DefaultAddr(t *testing.T) {
	assert.Equal(t, "smtp.gmail.com:587", (&SMTPTransport{}).addr())
	assert.Equal(t, "mail.example.com:465", (&SMTPTransport{Host: "mail.example.com", Port: 465}).addr())
	assert.True(t, (&SMTPTransport{Port: 465}).implicitTLS())
	assert.False(t, (&SMTPTransport{}).implicitTLS())
}

func TestSMTPTransport_CancelledContext(t *testing.T) {
	srv := startFakeSMTP(t, func(s *fakeSMTP) { s.silent = true })

	tr := &SMTPTransport{Host: "127.0.0.1", Port: srv.port()}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err := tr.Send(ctx, testMessage())
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
