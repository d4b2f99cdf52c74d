// Package stream decodes the event-stream body returned by the chat
// endpoint into a single assembled answer.
//
// The framing is line oriented: every meaningful line carries a "data: "
// marker followed by a JSON object with a "message" field, blank lines
// separate events, and the literal "data: [DONE]" line signals the end of
// the answer.
package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "data: [DONE]"

	// maxLineBytes bounds a single streamed line.
	maxLineBytes = 1 << 20
)

// MalformedStreamError reports a streamed line that violates the
// expected framing. No partial answer is produced when it occurs.
type MalformedStreamError struct {
	Line string
}

func (e *MalformedStreamError) Error() string {
	return fmt.Sprintf("bad stream format: %q", e.Line)
}

// Lines is a finite, single-pass sequence of text lines. Next returns
// io.EOF once the sequence is exhausted.
type Lines interface {
	Next() (string, error)
}

type readerLines struct {
	sc *bufio.Scanner
}

// NewLines produces the line sequence of a streaming response body.
// The body is read through exactly once.
func NewLines(r io.Reader) Lines {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &readerLines{sc: sc}
}

func (l *readerLines) Next() (string, error) {
	if !l.sc.Scan() {
		if err := l.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return l.sc.Text(), nil
}

type chunk struct {
	Message string `json:"message"`
}

// Assemble consumes lines until the completion sentinel or end of
// stream and returns the concatenation, in arrival order, of all chunk
// message fields. Bytes following the sentinel are never read.
func Assemble(lines Lines) (string, error) {
	var b strings.Builder
	for {
		line, err := lines.Next()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("reading stream: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == doneSentinel {
			return b.String(), nil
		}
		if !strings.HasPrefix(line, dataPrefix) {
			return "", &MalformedStreamError{Line: line}
		}

		var c chunk
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, dataPrefix)), &c); err != nil {
			return "", &MalformedStreamError{Line: line}
		}
		b.WriteString(c.Message)
	}
}
