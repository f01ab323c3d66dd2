package server

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/teemow/meetingbooker/internal/google"
	"github.com/teemow/meetingbooker/internal/instrumentation"
	"github.com/teemow/meetingbooker/internal/logging"
	"github.com/teemow/meetingbooker/internal/scheduling"
)

type authResponse struct {
	AuthURL string `json:"authUrl"`
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	url := google.AuthURL(s.deps.OAuth, s.states.issue())
	s.respond.writeJSON(r.Context(), w, http.StatusOK, authResponse{AuthURL: url})
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html><head><meta charset="UTF-8"><title>Authorization Successful</title></head>
<body>
<h2>Authorization Successful!</h2>
<p>The booking service can now create calendar events{{if .Persisted}} and the credentials were saved{{end}}. You can close this window.</p>
</body></html>
`))

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithOperation(s.logger, "oauth_callback")
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		logger.WarnContext(ctx, "authorization denied", slog.String("oauth_error", e))
		s.respond.writeError(ctx, w, http.StatusBadRequest, "authorization_denied", "Authorization was denied: "+e)
		return
	}
	code := q.Get("code")
	if code == "" {
		s.respond.writeError(ctx, w, http.StatusBadRequest, "missing_code", "Missing authorization code")
		return
	}
	if !s.states.consume(q.Get("state")) {
		logger.WarnContext(ctx, "rejected callback with unknown state")
		s.respond.writeError(ctx, w, http.StatusBadRequest, "invalid_state", "Invalid or expired state, restart at /auth")
		return
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, s.config.ExchangeTimeout)
	defer cancel()
	tok, err := google.Exchange(exchangeCtx, s.deps.OAuth, code)
	if err != nil {
		s.deps.Metrics.RecordOAuthExchange(ctx, instrumentation.OAuthResultFailure)
		logger.ErrorContext(ctx, "failed to exchange authorization code", logging.Err(err))
		s.respond.writeError(ctx, w, http.StatusInternalServerError, "exchange_failed", "Failed to get tokens")
		return
	}
	s.deps.Metrics.RecordOAuthExchange(ctx, instrumentation.OAuthResultSuccess)

	persisted := true
	if err := s.deps.Tokens.SetToken(tok); err != nil {
		persisted = false
		logger.WarnContext(ctx, "token installed but not persisted", logging.Err(err))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_ = callbackPage.Execute(w, struct{ Persisted bool }{persisted})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := decodeScheduleRequest(w, r, s.config.MaxBodyBytes)
	if err != nil {
		outcome := scheduling.ClientError(scheduling.NewClientInputError("body", err.Error()))
		s.deps.Metrics.RecordSchedulingOutcome(ctx, instrumentation.SourceHTTP, outcome.Label(), outcome.Reason(), "", 0)
		s.respond.writeJSON(ctx, w, outcome.HTTPStatus(), outcome.Response())
		return
	}

	outcome := s.deps.Scheduler.Schedule(ctx, instrumentation.SourceHTTP, raw)
	s.respond.writeJSON(ctx, w, outcome.HTTPStatus(), outcome.Response())
}

func decodeScheduleRequest(w http.ResponseWriter, r *http.Request, limit int64) (scheduling.RawRequest, error) {
	var raw scheduling.RawRequest

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return raw, errors.New("content type must be application/json")
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(&raw); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return raw, errors.New("request body too large")
		case errors.Is(err, io.EOF):
			return raw, errors.New("request body is empty")
		default:
			return raw, errors.New("malformed JSON")
		}
	}
	if dec.More() {
		return raw, errors.New("request body must contain a single JSON object")
	}
	return raw, nil
}

func (s *Server) handleDebugToken(w http.ResponseWriter, r *http.Request) {
	s.respond.writeJSON(r.Context(), w, http.StatusOK, s.deps.Tokens.Status())
}

type calendarCheckResponse struct {
	Status   string                 `json:"status"`
	Calendar *calendarCheckCalendar `json:"calendar,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Reason   string                 `json:"reason,omitempty"`
}

type calendarCheckCalendar struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	TimeZone   string `json:"timeZone"`
	AccessRole string `json:"accessRole"`
}

func (s *Server) handleDebugCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := s.deps.Calendar.GetCalendar(ctx, s.config.CalendarID)
	if err != nil {
		reason := scheduling.NewProviderError(err).Reason
		s.logger.WarnContext(ctx, "calendar connectivity check failed", logging.Reason(reason), logging.Err(err))
		s.respond.writeJSON(ctx, w, http.StatusBadGateway, calendarCheckResponse{
			Status: "error",
			Error:  err.Error(),
			Reason: reason,
		})
		return
	}
	s.respond.writeJSON(ctx, w, http.StatusOK, calendarCheckResponse{
		Status: "ok",
		Calendar: &calendarCheckCalendar{
			ID:         info.ID,
			Summary:    info.Summary,
			TimeZone:   info.TimeZone,
			AccessRole: info.AccessRole,
		},
	})
}
