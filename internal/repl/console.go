// Package repl provides the interactive terminal surface: a
// line-editing console with persisted history, meta-command parsing and
// shell passthrough. It knows nothing about the chat protocol.
package repl

import (
	"strings"

	"github.com/chzyer/readline"
)

// Console is the line-editing session capability. Input history is
// persisted to historyFile across runs.
type Console struct {
	rl *readline.Instance
}

// NewConsole opens a readline console with the given prompt.
func NewConsole(prompt, historyFile string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	return &Console{rl: rl}, nil
}

// ReadLine reads one line of input. The line is trimmed; empty input is
// returned as-is so the caller can decide how to nag. Interrupt and EOF
// surface as readline.ErrInterrupt and io.EOF.
func (c *Console) ReadLine() (string, error) {
	line, err := c.rl.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Close flushes the history file and releases the terminal.
func (c *Console) Close() error {
	return c.rl.Close()
}
