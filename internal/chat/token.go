package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	statusPath = "/status"

	// tokenHeader carries the rotating vqd token in both directions.
	tokenHeader       = "x-vqd-4"
	tokenAcceptHeader = "x-vqd-accept"
)

// TokenManager owns the rotating session token. It extracts the token
// from response headers and hands it out for injection into subsequent
// requests. It never retries; failures go straight to the caller.
type TokenManager struct {
	client  Doer
	baseURL string
	logger  *slog.Logger
	current string
}

// NewTokenManager creates a manager with no token yet negotiated.
func NewTokenManager(client Doer, baseURL string, logger *slog.Logger) *TokenManager {
	return &TokenManager{client: client, baseURL: baseURL, logger: logger}
}

// Current returns the most recently observed token.
func (m *TokenManager) Current() string {
	return m.current
}

// Initialize issues a capability-negotiation request to the status
// endpoint and stores the issued token.
func (m *TokenManager) Initialize(ctx context.Context) error {
	url := m.baseURL + statusPath
	m.logger.Debug("requesting vqd", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &SessionInitError{Reason: "building status request", Err: err}
	}
	req.Header.Set(tokenAcceptHeader, "1")

	resp, err := m.client.Do(req)
	if err != nil {
		return &SessionInitError{Reason: "status request", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SessionInitError{Reason: fmt.Sprintf("status endpoint returned %d", resp.StatusCode)}
	}

	token := resp.Header.Get(tokenHeader)
	if token == "" {
		return &SessionInitError{Reason: "no " + tokenHeader + " header in status response"}
	}

	m.logger.Debug("received vqd", "token", token)
	m.current = token
	return nil
}

// Update replaces the current token with the renewal carried by a chat
// response. When the renewal header is absent the prior token is left
// untouched and a ProtocolError is returned.
func (m *TokenManager) Update(h http.Header) error {
	renewed := h.Get(tokenHeader)
	if renewed == "" {
		return &ProtocolError{Reason: "chat response missing " + tokenHeader + " renewal header"}
	}
	m.logger.Debug("vqd rotated", "from", m.current, "to", renewed)
	m.current = renewed
	return nil
}
