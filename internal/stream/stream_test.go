package stream

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(t *testing.T, body string) (string, error) {
	t.Helper()
	return Assemble(NewLines(strings.NewReader(body)))
}

func TestAssembleConcatenatesChunks(t *testing.T) {
	got, err := assemble(t, "data: {\"message\":\"He\"}\ndata: {\"message\":\"llo\"}\ndata: [DONE]\n")
	require.NoError(t, err)
	assert.Equal(t, "Hello", got)
}

func TestAssembleStopsAtSentinel(t *testing.T) {
	// Bytes after the sentinel are ignored, even broken ones.
	body := "data: {\"message\":\"He\"}\ndata: {\"message\":\"llo\"}\ndata: [DONE]\nnot-a-valid-line\n"
	got, err := assemble(t, body)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got)
}

func TestAssembleRejectsUnmarkedLine(t *testing.T) {
	_, err := assemble(t, "data: {\"message\":\"hi\"}\nnot-data-prefixed\ndata: [DONE]\n")
	var malformed *MalformedStreamError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "not-data-prefixed", malformed.Line)
}

func TestAssembleRejectsUndecodableChunk(t *testing.T) {
	_, err := assemble(t, "data: {broken\ndata: [DONE]\n")
	var malformed *MalformedStreamError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "data: {broken", malformed.Line)
}

func TestAssembleToleratesEmptyChunks(t *testing.T) {
	got, err := assemble(t, "data: {\"message\":\"\"}\ndata: {\"message\":\"ok\"}\ndata: [DONE]\n")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestAssembleSkipsBlankSeparatorLines(t *testing.T) {
	got, err := assemble(t, "data: {\"message\":\"a\"}\n\n\ndata: {\"message\":\"b\"}\n\ndata: [DONE]\n")
	require.NoError(t, err)
	assert.Equal(t, "ab", got)
}

func TestAssembleMissingMessageFieldIsEmptyChunk(t *testing.T) {
	got, err := assemble(t, "data: {\"other\":1}\ndata: {\"message\":\"x\"}\ndata: [DONE]\n")
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}

func TestAssembleEndOfStreamWithoutSentinel(t *testing.T) {
	got, err := assemble(t, "data: {\"message\":\"partial\"}\n")
	require.NoError(t, err)
	assert.Equal(t, "partial", got)
}

type failingLines struct {
	err error
}

func (f *failingLines) Next() (string, error) { return "", f.err }

func TestAssembleSurfacesReadErrors(t *testing.T) {
	readErr := errors.New("connection reset")
	_, err := Assemble(&failingLines{err: readErr})
	require.ErrorIs(t, err, readErr)
}

func TestLinesSinglePass(t *testing.T) {
	lines := NewLines(strings.NewReader("one\ntwo\n"))

	first, err := lines.Next()
	require.NoError(t, err)
	assert.Equal(t, "one", first)

	second, err := lines.Next()
	require.NoError(t, err)
	assert.Equal(t, "two", second)

	_, err = lines.Next()
	assert.ErrorIs(t, err, io.EOF)
}
