package repl

import (
	"os"
	"os/exec"
	"strings"
)

// SpawnShell handles a "!"-prefixed passthrough line. A bare "!" opens
// an interactive login shell; anything after the "!" runs under bash -c
// with the terminal attached.
func SpawnShell(line string) error {
	var cmd *exec.Cmd
	if line == "!" {
		cmd = exec.Command("bash", "-li")
	} else {
		cmd = exec.Command("bash", "-c", strings.TrimPrefix(line, "!"))
		cmd.Env = append(os.Environ(), "PS2=(exit to return) >")
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
