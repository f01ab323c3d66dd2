package scheduling

import (
	"net/http"
	"strings"
)

// Kind is the classification of a scheduling attempt.
type Kind int

const (
	// KindClientError means the request was rejected before any provider call.
	KindClientError Kind = iota + 1
	// KindHardFailure means the calendar event could not be created.
	KindHardFailure
	// KindSuccess means the event exists. The confirmation may have failed.
	KindSuccess
)

func (k Kind) String() string {
	switch k {
	case KindClientError:
		return "client_error"
	case KindHardFailure:
		return "hard_failure"
	case KindSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Response status values.
const (
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
	StatusError          = "error"
)

// Response messages.
const (
	MessageSuccess        = "Meeting scheduled & email sent successfully!"
	MessagePartialSuccess = "Meeting scheduled successfully! However, email notification could not be sent. Please save the meeting link."
	WarningNotification   = "Email notification failed"
	ErrorCalendar         = "Failed to create calendar event"
	ErrorInvalidRequest   = "Invalid scheduling request"
)

// Outcome is the immutable result of Orchestrator.Schedule. The zero value is
// not a valid outcome; use ClientError, HardFailure or Success.
type Outcome struct {
	kind     Kind
	event    EventResult
	notified bool
	input    *ClientInputError
	provider *ProviderError
}

// ClientError builds a client error outcome.
func ClientError(err *ClientInputError) Outcome {
	return Outcome{kind: KindClientError, input: err}
}

// HardFailure builds a hard failure outcome.
func HardFailure(err *ProviderError) Outcome {
	return Outcome{kind: KindHardFailure, provider: err}
}

// Success builds a success outcome. notified reports whether the confirmation
// was handed to the mail transport.
func Success(event EventResult, notified bool) Outcome {
	return Outcome{kind: KindSuccess, event: event, notified: notified}
}

// Kind returns the classification.
func (o Outcome) Kind() Kind { return o.kind }

// Event returns the created event. It is only set for KindSuccess.
func (o Outcome) Event() (EventResult, bool) {
	return o.event, o.kind == KindSuccess
}

// Notified reports whether the confirmation was sent.
func (o Outcome) Notified() bool { return o.kind == KindSuccess && o.notified }

// Err returns the *ClientInputError or *ProviderError behind a failed outcome.
func (o Outcome) Err() error {
	switch o.kind {
	case KindClientError:
		if o.input != nil {
			return o.input
		}
	case KindHardFailure:
		if o.provider != nil {
			return o.provider
		}
	}
	return nil
}

// Status returns "success", "partial_success" or "error".
func (o Outcome) Status() string {
	switch o.kind {
	case KindSuccess:
		if o.notified {
			return StatusSuccess
		}
		return StatusPartialSuccess
	default:
		return StatusError
	}
}

// Label is the outcome name used in metrics and audit logs.
func (o Outcome) Label() string {
	if o.kind == KindSuccess {
		return o.Status()
	}
	return o.kind.String()
}

// Reason is the machine-readable failure reason, empty on success.
func (o Outcome) Reason() string {
	switch o.kind {
	case KindClientError:
		return ReasonInvalidRequest
	case KindHardFailure:
		if o.provider == nil {
			return ReasonUnknown
		}
		return o.provider.Reason
	default:
		return ""
	}
}

// HTTPStatus maps the outcome to its HTTP status code.
func (o Outcome) HTTPStatus() int {
	switch o.kind {
	case KindClientError:
		return http.StatusBadRequest
	case KindSuccess:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// Warning is set when the event exists but the confirmation was not sent.
func (o Outcome) Warning() string {
	if o.kind == KindSuccess && !o.notified {
		return WarningNotification
	}
	return ""
}

// Response is the JSON body returned to callers.
type Response struct {
	Status   string       `json:"status"`
	Message  string       `json:"message,omitempty"`
	MeetLink string       `json:"meetLink,omitempty"`
	EventID  string       `json:"eventId,omitempty"`
	HTMLLink string       `json:"htmlLink,omitempty"`
	Warning  string       `json:"warning,omitempty"`
	Error    string       `json:"error,omitempty"`
	Details  string       `json:"details,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	Fields   []FieldError `json:"fields,omitempty"`
}

// Response renders the outcome as a response body.
func (o Outcome) Response() Response {
	switch o.kind {
	case KindSuccess:
		resp := Response{
			Status:   o.Status(),
			MeetLink: o.event.JoinLink,
			EventID:  o.event.EventID,
			HTMLLink: o.event.HTMLLink,
		}
		if o.notified {
			resp.Message = MessageSuccess
		} else {
			resp.Message = MessagePartialSuccess
			resp.Warning = WarningNotification
		}
		return resp
	case KindClientError:
		resp := Response{
			Status: StatusError,
			Error:  ErrorInvalidRequest,
			Reason: ReasonInvalidRequest,
		}
		if o.input != nil {
			resp.Fields = o.input.Fields
			msgs := make([]string, 0, len(o.input.Fields))
			for _, f := range o.input.Fields {
				msgs = append(msgs, f.Field+" "+f.Message)
			}
			resp.Details = strings.Join(msgs, "; ")
		}
		return resp
	default:
		resp := Response{
			Status: StatusError,
			Error:  ErrorCalendar,
			Reason: o.Reason(),
		}
		if o.provider != nil && o.provider.Err != nil {
			resp.Details = o.provider.Err.Error()
		}
		return resp
	}
}
