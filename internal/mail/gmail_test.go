package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func newTestGmailTransport(t *testing.T, handler http.HandlerFunc) *GmailTransport {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tr, err := NewGmailTransport(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return tr
}

func TestGmailTransport_Send(t *testing.T) {
	var raw []byte
	tr := newTestGmailTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gmail/v1/users/me/messages/send", r.URL.Path)
		var msg gmail.Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		var err error
		raw, err = base64.URLEncoding.DecodeString(msg.Raw)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(&gmail.Message{Id: "gmail-1"})
	})

	id, err := tr.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "gmail-1", id)
	assert.Contains(t, string(raw), "To: \"Ada\" <ada@example.com>")
}

func TestGmailTransport_Errors(t *testing.T) {
	tests := []struct {
		status    int
		temporary bool
	}{
		{http.StatusForbidden, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			tr := newTestGmailTransport(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"failed"}}`))
			})

			_, err := tr.Send(context.Background(), testMessage())
			require.Error(t, err)

			var te *TransportError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, TransportGmail, te.Transport)
			assert.Equal(t, tt.temporary, te.Temporary)
		})
	}
}

func TestNewGmailTransport_NilClient(t *testing.T) {
	_, err := NewGmailTransport(context.Background(), nil)
	assert.Error(t, err)
}
