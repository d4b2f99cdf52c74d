package chat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mnoop "go.opentelemetry.io/otel/metric/noop"
	tnoop "go.opentelemetry.io/otel/trace/noop"

	"duckchat/internal/stream"
)

// backendStub fakes the status and chat endpoints, rotating through a
// fixed list of tokens and recording what each request carried.
type backendStub struct {
	t *testing.T

	tokens     []string
	next       int
	streamBody string
	chatStatus int
	omitRenew  bool

	seenTokens []string
	seenBodies []chatRequest
}

func (b *backendStub) handler() http.Handler {
	mux := http.NewServeMux()
	// Method-prefixed patterns ("GET /status") need Go 1.22+; the build
	// toolchain is 1.21, so register plain paths.
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(tokenAcceptHeader) != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set(tokenHeader, b.issue())
	})
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		b.seenTokens = append(b.seenTokens, r.Header.Get(tokenHeader))

		var req chatRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(b.t, json.Unmarshal(body, &req))
		b.seenBodies = append(b.seenBodies, req)

		if b.chatStatus != 0 {
			w.WriteHeader(b.chatStatus)
			_, _ = w.Write([]byte("backend unhappy"))
			return
		}
		if !b.omitRenew {
			w.Header().Set(tokenHeader, b.issue())
		}
		_, _ = w.Write([]byte(b.streamBody))
	})
	return mux
}

func (b *backendStub) issue() string {
	tok := b.tokens[b.next]
	if b.next < len(b.tokens)-1 {
		b.next++
	}
	return tok
}

func newTestSession(t *testing.T, stub *backendStub) *Session {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	return New(Params{
		Client:  srv.Client(),
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:  tnoop.NewTracerProvider().Tracer("test"),
		Meter:   mnoop.NewMeterProvider().Meter("test"),
	})
}

const helloStream = "data: {\"message\":\"He\"}\ndata: {\"message\":\"llo\"}\ndata: [DONE]\n"

func TestSetupStoresIssuedToken(t *testing.T) {
	stub := &backendStub{t: t, tokens: []string{"vqd-1"}}
	s := newTestSession(t, stub)

	require.NoError(t, s.Setup(context.Background()))
	assert.Equal(t, "vqd-1", s.tokens.Current())
}

func TestSetupFailsWithoutTokenHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 but no token header.
	}))
	t.Cleanup(srv.Close)

	s := New(Params{
		Client:  srv.Client(),
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:  tnoop.NewTracerProvider().Tracer("test"),
		Meter:   mnoop.NewMeterProvider().Meter("test"),
	})

	var initErr *SessionInitError
	require.ErrorAs(t, s.Setup(context.Background()), &initErr)
}

func TestSetupFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(srv.Close)

	s := New(Params{
		Client:  srv.Client(),
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:  tnoop.NewTracerProvider().Tracer("test"),
		Meter:   mnoop.NewMeterProvider().Meter("test"),
	})

	var initErr *SessionInitError
	require.ErrorAs(t, s.Setup(context.Background()), &initErr)
}

func TestSendAssemblesAnswerAndCommitsTurns(t *testing.T) {
	stub := &backendStub{t: t, tokens: []string{"vqd-1", "vqd-2"}, streamBody: helloStream}
	s := newTestSession(t, stub)
	ctx := context.Background()

	require.NoError(t, s.Setup(ctx))

	answer, err := s.Send(ctx, "say hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello", answer)

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, "say hello", history[0].Content)
	assert.Equal(t, "Hello", history[1].Content)
}

func TestSendReplaysFullHistoryInOrder(t *testing.T) {
	stub := &backendStub{t: t, tokens: []string{"vqd-1", "vqd-2", "vqd-3"}, streamBody: helloStream}
	s := newTestSession(t, stub)
	ctx := context.Background()

	require.NoError(t, s.Setup(ctx))
	_, err := s.Send(ctx, "first")
	require.NoError(t, err)
	_, err = s.Send(ctx, "second")
	require.NoError(t, err)

	require.Len(t, stub.seenBodies, 2)
	second := stub.seenBodies[1]
	assert.Equal(t, "gpt-4o-mini", second.Model)
	require.Len(t, second.Messages, 3)
	assert.Equal(t, "first", second.Messages[0].Content)
	assert.Equal(t, "Hello", second.Messages[1].Content)
	assert.Equal(t, "second", second.Messages[2].Content)
}

func TestSendRotatesTokenMonotonically(t *testing.T) {
	stub := &backendStub{t: t, tokens: []string{"vqd-1", "vqd-2", "vqd-3"}, streamBody: helloStream}
	s := newTestSession(t, stub)
	ctx := context.Background()

	require.NoError(t, s.Setup(ctx))
	_, err := s.Send(ctx, "one")
	require.NoError(t, err)
	_, err = s.Send(ctx, "two")
	require.NoError(t, err)

	// Request n+1 carries exactly the token issued by response n.
	assert.Equal(t, []string{"vqd-1", "vqd-2"}, stub.seenTokens)
	assert.Equal(t, "vqd-3", s.tokens.Current())
}

func TestSendMissingRenewalTokenKeepsPriorToken(t *testing.T) {
	stub := &backendStub{t: t, tokens: []string{"vqd-1"}, streamBody: helloStream, omitRenew: true}
	s := newTestSession(t, stub)
	ctx := context.Background()

	require.NoError(t, s.Setup(ctx))
	_, err := s.Send(ctx, "hello")

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "vqd-1", s.tokens.Current())
}

func TestSendNon2xxIsTransportError(t *testing.T) {
	stub := &backendStub{t: t, tokens: []string{"vqd-1"}, chatStatus: http.StatusTooManyRequests}
	s := newTestSession(t, stub)
	ctx := context.Background()

	require.NoError(t, s.Setup(ctx))
	_, err := s.Send(ctx, "hello")

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusTooManyRequests, transportErr.Status)
	assert.Equal(t, "backend unhappy", transportErr.Body)

	// The user turn stays; no assistant turn was committed.
	require.Len(t, s.History(), 1)
}

func TestSendMalformedStreamLeavesUserTurnOnly(t *testing.T) {
	stub := &backendStub{t: t, tokens: []string{"vqd-1", "vqd-2"}, streamBody: "garbage line\n"}
	s := newTestSession(t, stub)
	ctx := context.Background()

	require.NoError(t, s.Setup(ctx))
	_, err := s.Send(ctx, "hello")

	var malformed *stream.MalformedStreamError
	require.ErrorAs(t, err, &malformed)

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
}

func TestRepeatedSetupKeepsHistory(t *testing.T) {
	stub := &backendStub{t: t, tokens: []string{"vqd-1", "vqd-2", "vqd-3"}, streamBody: helloStream}
	s := newTestSession(t, stub)
	ctx := context.Background()

	require.NoError(t, s.Setup(ctx))
	_, err := s.Send(ctx, "hello")
	require.NoError(t, err)

	// A second setup re-negotiates the token but leaves the
	// client-side history alone.
	require.NoError(t, s.Setup(ctx))
	assert.Len(t, s.History(), 2)
}
