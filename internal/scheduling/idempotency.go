package scheduling

import (
	"encoding/base32"
	"strings"
	"time"

	"github.com/google/uuid"
)

// idempotencyNamespace scopes derived keys to this service.
var idempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/teemow/meetingbooker/schedule"))

// eventIDEncoding produces ids in the alphabet Google accepts for event ids (a-v, 0-9).
var eventIDEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// IdempotencyKey identifies one booking attempt.
type IdempotencyKey struct {
	// RequestID is the conference create request id.
	RequestID string
	// EventID is a client-chosen event id. Empty in random mode.
	EventID string
}

// NewIdempotencyKey returns the key for req under mode.
func NewIdempotencyKey(mode IdempotencyMode, req MeetingRequest) IdempotencyKey {
	if mode != IdempotencyDerived {
		return IdempotencyKey{RequestID: uuid.NewString()}
	}
	id := DerivedID(req.AttendeeEmail, req.Start)
	return IdempotencyKey{
		RequestID: id.String(),
		EventID:   strings.ToLower(eventIDEncoding.EncodeToString(id[:])),
	}
}

// DerivedID is a UUIDv5 over the lower-cased email and the UTC start instant.
// The same attendee booking the same instant always yields the same id.
func DerivedID(email string, start time.Time) uuid.UUID {
	name := strings.ToLower(strings.TrimSpace(email)) + "|" + start.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(idempotencyNamespace, []byte(name))
}
