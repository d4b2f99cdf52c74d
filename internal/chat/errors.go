package chat

import "fmt"

// SessionInitError indicates the status endpoint could not be reached or
// did not issue a session token. Fatal to session start; never retried.
type SessionInitError struct {
	Reason string
	Err    error
}

func (e *SessionInitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session init: %s: %v", e.Reason, e.Err)
	}
	return "session init: " + e.Reason
}

func (e *SessionInitError) Unwrap() error { return e.Err }

// TransportError indicates a non-2xx status from the chat endpoint.
// The caller decides whether to re-prompt; nothing is retried.
type TransportError struct {
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chat request failed with status %d: %s", e.Status, e.Body)
}

// ProtocolError indicates a successful chat response that violated the
// protocol, typically by omitting the renewal token. The session should
// be treated as unreliable.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "protocol: " + e.Reason }
