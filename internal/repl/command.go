package repl

import "strings"

// Command is a parsed ":"-prefixed meta-command.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a meta-command line into its name and arguments.
// The leading ":" is optional so callers can pass the raw line.
func ParseCommand(line string) Command {
	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		return Command{}
	}
	cmd := Command{Name: fields[0]}
	if len(fields) > 1 {
		cmd.Args = fields[1:]
	}
	return cmd
}
