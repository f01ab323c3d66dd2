package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome_Classification(t *testing.T) {
	event := EventResult{EventID: "evt1", JoinLink: "https://meet.example/abc"}
	providerErr := &ProviderError{Reason: ReasonValidation, Err: errors.New("bad request")}
	inputErr := NewClientInputError("email", "is required")

	tests := []struct {
		name       string
		outcome    Outcome
		kind       Kind
		status     string
		label      string
		reason     string
		httpStatus int
		warning    string
		wantErr    error
	}{
		{
			name:       "success",
			outcome:    Success(event, true),
			kind:       KindSuccess,
			status:     StatusSuccess,
			label:      "success",
			httpStatus: http.StatusOK,
		},
		{
			name:       "partial success",
			outcome:    Success(event, false),
			kind:       KindSuccess,
			status:     StatusPartialSuccess,
			label:      "partial_success",
			httpStatus: http.StatusOK,
			warning:    WarningNotification,
		},
		{
			name:       "hard failure",
			outcome:    HardFailure(providerErr),
			kind:       KindHardFailure,
			status:     StatusError,
			label:      "hard_failure",
			reason:     ReasonValidation,
			httpStatus: http.StatusInternalServerError,
			wantErr:    providerErr,
		},
		{
			name:       "client error",
			outcome:    ClientError(inputErr),
			kind:       KindClientError,
			status:     StatusError,
			label:      "client_error",
			reason:     ReasonInvalidRequest,
			httpStatus: http.StatusBadRequest,
			wantErr:    inputErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.outcome.Kind())
			assert.Equal(t, tt.status, tt.outcome.Status())
			assert.Equal(t, tt.label, tt.outcome.Label())
			assert.Equal(t, tt.reason, tt.outcome.Reason())
			assert.Equal(t, tt.httpStatus, tt.outcome.HTTPStatus())
			assert.Equal(t, tt.warning, tt.outcome.Warning())
			if tt.wantErr == nil {
				assert.NoError(t, tt.outcome.Err())
			} else {
				assert.Same(t, tt.wantErr, tt.outcome.Err())
			}
		})
	}
}

func TestOutcome_ZeroValueIsError(t *testing.T) {
	var o Outcome
	assert.Equal(t, StatusError, o.Status())
	assert.Equal(t, http.StatusInternalServerError, o.HTTPStatus())
	assert.False(t, o.Notified())
	_, ok := o.Event()
	assert.False(t, ok)
}

func TestOutcome_ResponseJSON(t *testing.T) {
	event := EventResult{EventID: "evt1", JoinLink: "https://meet.example/abc"}

	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{
			name:    "success",
			outcome: Success(event, true),
			want:    `{"status":"success","message":"Meeting scheduled & email sent successfully!","meetLink":"https://meet.example/abc","eventId":"evt1"}`,
		},
		{
			name:    "partial success",
			outcome: Success(event, false),
			want:    `{"status":"partial_success","message":"Meeting scheduled successfully! However, email notification could not be sent. Please save the meeting link.","meetLink":"https://meet.example/abc","eventId":"evt1","warning":"Email notification failed"}`,
		},
		{
			name:    "hard failure",
			outcome: HardFailure(&ProviderError{Reason: ReasonAuth, Err: errors.New("token expired")}),
			want:    `{"status":"error","error":"Failed to create calendar event","details":"token expired","reason":"auth"}`,
		},
		{
			name:    "client error",
			outcome: ClientError(NewClientInputError("name", "is required")),
			want:    `{"status":"error","error":"Invalid scheduling request","details":"name is required","reason":"invalid_request","fields":[{"field":"name","message":"is required"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.outcome.Response())
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}
