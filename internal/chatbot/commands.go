package chatbot

import (
	"context"
	"fmt"

	"duckchat/internal/repl"
)

// runCommand dispatches a ":"-prefixed meta-command. The bool reports
// whether the command was recognized.
func (b *ChatBot) runCommand(ctx context.Context, line string) (bool, error) {
	cmd := repl.ParseCommand(line)

	switch cmd.Name {
	case "newhist":
		if err := b.save(); err != nil {
			b.logger.Warn("failed to save session before reset", "error", err)
		}
		b.engine.Reset()
		b.meta = b.newMeta(b.engine.Model())
		b.printer.Println("Started new history: " + b.meta.ID)
		return true, nil

	case "listmodels":
		b.printer.Models(b.models)
		return true, nil

	case "setmodel":
		if len(cmd.Args) == 0 {
			b.printer.Println(b.engine.Model())
			return true, nil
		}
		return true, b.switchModel(ctx, cmd.Args[0])

	case "help":
		b.printer.CommandHelp()
		return true, nil
	}

	return false, nil
}

// switchModel ends the current session and starts a fresh one bound to
// the new model. The model binding is fixed per session, so switching
// means a new token negotiation and a clean history.
func (b *ChatBot) switchModel(ctx context.Context, alias string) error {
	modelID, err := b.models.Resolve(alias)
	if err != nil {
		return err
	}

	if err := b.save(); err != nil {
		b.logger.Warn("failed to save session before model switch", "error", err)
	}

	b.alias = alias
	b.meta = b.newMeta(modelID)
	b.engine = b.newEngine(modelID, nil)
	if err := b.engine.Setup(ctx); err != nil {
		return fmt.Errorf("starting session with model %s: %w", alias, err)
	}

	b.printer.Println(fmt.Sprintf("Switched to %s (new session)", alias))
	return nil
}
