// Package chat implements the session and streaming protocol engine of
// the client: it negotiates a session token, serializes the conversation
// into chat requests, assembles streamed answers, and carries the
// rotating token across exchanges.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"duckchat/internal/session"
	"duckchat/internal/stream"
)

const chatPath = "/chat"

// Doer is the transport capability the engine depends on. It is
// satisfied by *http.Client; the underlying connection pool is reused
// across calls but carries no state the engine relies on beyond
// keep-alive.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Params configures a Session.
type Params struct {
	Client  Doer
	BaseURL string
	// Model is the resolved backend model identifier, fixed for the
	// lifetime of the session.
	Model string
	// History optionally seeds the conversation, e.g. when resuming a
	// persisted session.
	History []session.Message
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Meter   metric.Meter
}

// Session drives one sequential conversation against the backend. It
// owns the conversation log and the session token exclusively; callers
// must not run two Send calls concurrently on the same instance.
type Session struct {
	client  Doer
	baseURL string
	model   string
	tokens  *TokenManager
	conv    *session.Conversation
	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter
}

// New creates a session engine. Setup must be called before Send.
func New(p Params) *Session {
	return &Session{
		client:  p.Client,
		baseURL: p.BaseURL,
		model:   p.Model,
		tokens:  NewTokenManager(p.Client, p.BaseURL, p.Logger),
		conv:    session.NewConversation(p.History),
		logger:  p.Logger,
		tracer:  p.Tracer,
		meter:   p.Meter,
	}
}

// chatRequest is the wire body of a chat call. The full history is
// replayed on every exchange.
type chatRequest struct {
	Model    string            `json:"model"`
	Messages []session.Message `json:"messages"`
}

// Setup negotiates the initial session token. Calling it again starts a
// fresh backend session over the unchanged client-side history.
func (s *Session) Setup(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "chat.setup")
	defer span.End()

	return s.tokens.Initialize(ctx)
}

// Send appends the prompt to the conversation, posts the full history to
// the chat endpoint, assembles the streamed answer, commits it as an
// assistant turn, and rotates the session token.
//
// On a stream or transport failure the user turn remains appended but no
// assistant turn is committed. Errors are propagated without retry.
func (s *Session) Send(ctx context.Context, prompt string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "chat.send")
	defer span.End()

	start := time.Now()

	if err := s.conv.AppendUser(prompt); err != nil {
		return "", err
	}

	payload, err := json.Marshal(chatRequest{Model: s.model, Messages: s.conv.Snapshot()})
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+chatPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set(tokenHeader, s.tokens.Current())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &TransportError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	answer, err := stream.Assemble(stream.NewLines(resp.Body))
	if err != nil {
		return "", err
	}

	if err := s.conv.AppendAssistant(answer); err != nil {
		return "", err
	}
	if err := s.tokens.Update(resp.Header); err != nil {
		return "", err
	}

	s.recordSend(ctx, time.Since(start), len(answer))
	s.logger.Debug("answer assembled", "chars", len(answer), "turns", s.conv.Len())
	return answer, nil
}

func (s *Session) recordSend(ctx context.Context, d time.Duration, chars int) {
	histogram, err := s.meter.Float64Histogram(
		"chat.send.duration",
		metric.WithDescription("Chat exchange duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err == nil {
		histogram.Record(ctx, float64(d.Milliseconds()))
	}

	counter, err := s.meter.Int64Counter(
		"chat.answer.chars",
		metric.WithDescription("Characters of assembled answer text"),
	)
	if err == nil {
		counter.Add(ctx, int64(chars))
	}
}

// Model returns the resolved model identifier bound to this session.
func (s *Session) Model() string {
	return s.model
}

// History returns a copy of the conversation so far.
func (s *Session) History() []session.Message {
	return s.conv.Snapshot()
}

// Reset clears the conversation. Invoked only on an explicit user
// command.
func (s *Session) Reset() {
	s.conv.Reset()
}
