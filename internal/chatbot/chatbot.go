// Package chatbot wires the protocol engine to the terminal: the REPL
// loop, meta-commands, one-shot mode, rendering, speech and session
// persistence.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"duckchat/internal/chat"
	"duckchat/internal/config"
	"duckchat/internal/render"
	"duckchat/internal/repl"
	"duckchat/internal/session"
	"duckchat/internal/store"
	"duckchat/internal/telemetry"
	"duckchat/internal/tts"
)

// ChatBot is the application: one protocol engine, one terminal.
type ChatBot struct {
	cfg    config.Config
	models config.Models

	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter
	cleanup func() error

	httpClient *http.Client
	st         *store.Store
	printer    *render.Printer
	speaker    *tts.Speaker

	alias  string
	meta   session.Session
	engine *chat.Session
}

// New builds the application from configuration. The model alias must
// already have been validated against the table.
func New(ctx context.Context, cfg config.Config, models config.Models) (*ChatBot, error) {
	logger, err := telemetry.InitLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	b := &ChatBot{
		cfg:        cfg,
		models:     models,
		logger:     logger,
		tracer:     tracer,
		meter:      meter,
		cleanup:    cleanup,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		st:         st,
		printer:    render.NewPrinter(os.Stdout),
	}

	if cfg.TTS {
		b.speaker = tts.New(b.httpClient, cfg.TTSLang, cfg.TTSRate, logger)
	}

	modelID, err := models.Resolve(cfg.Model)
	if err != nil {
		return nil, err
	}

	var history []session.Message
	if cfg.SessionID != "" {
		meta, msgs, err := st.Load(cfg.SessionID)
		if err != nil {
			logger.Warn("failed to load session, starting a new one", "session_id", cfg.SessionID, "error", err)
		} else {
			logger.Info("resumed session", "session_id", meta.ID, "messages", len(msgs))
			b.meta = meta
			history = msgs
		}
	}
	if b.meta.ID == "" {
		b.meta = b.newMeta(modelID)
	}
	// A resumed session continues under the model requested now.
	b.meta.Model = modelID

	b.alias = cfg.Model
	b.engine = b.newEngine(modelID, history)
	return b, nil
}

func (b *ChatBot) newMeta(modelID string) session.Session {
	meta := session.Session{
		ID:        "session_" + uuid.NewString(),
		StartTime: time.Now(),
		Model:     modelID,
	}
	b.logger.Info("created new session", "session_id", meta.ID, "model", modelID)
	return meta
}

func (b *ChatBot) newEngine(modelID string, history []session.Message) *chat.Session {
	return chat.New(chat.Params{
		Client:  b.httpClient,
		BaseURL: b.cfg.BaseURL,
		Model:   modelID,
		History: history,
		Logger:  b.logger,
		Tracer:  b.tracer,
		Meter:   b.meter,
	})
}

// Run drives the chat until exit. It owns the terminal for its whole
// lifetime.
func (b *ChatBot) Run(ctx context.Context) error {
	defer func() {
		if err := b.st.Close(); err != nil {
			b.logger.Error("closing session store", "error", err)
		}
		if err := b.cleanup(); err != nil {
			b.logger.Error("telemetry shutdown", "error", err)
		}
	}()

	b.printer.Hello(b.alias)

	if err := b.engine.Setup(ctx); err != nil {
		return err
	}

	if b.cfg.OneShot != "" {
		return b.runOneShot(ctx)
	}
	return b.runInteractive(ctx)
}

func (b *ChatBot) runOneShot(ctx context.Context) error {
	prompt := b.cfg.OneShot
	if b.cfg.File != "" {
		contents, err := os.ReadFile(b.cfg.File)
		if err != nil {
			return fmt.Errorf("reading prompt file: %w", err)
		}
		prompt += " " + string(contents)
	}

	switch {
	case strings.HasPrefix(prompt, "!"):
		return repl.SpawnShell(prompt)
	case strings.HasPrefix(prompt, ":"):
		_, err := b.runCommand(ctx, prompt)
		return err
	}

	if err := b.ask(ctx, prompt); err != nil {
		return err
	}
	return b.save()
}

func (b *ChatBot) runInteractive(ctx context.Context) error {
	username := os.Getenv("USER")
	if username == "" {
		username = "me"
	}

	console, err := repl.NewConsole("🦆 \033[33m"+username+"\033[0m: ", b.cfg.HistoryFile)
	if err != nil {
		return fmt.Errorf("opening console: %w", err)
	}
	defer console.Close()

	for {
		line, err := console.ReadLine()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading prompt: %w", err)
		}
		if line == "" {
			b.printer.Warn("Your prompt is empty!")
			continue
		}
		if line == "exit" {
			b.printer.Println("bye!")
			break
		}

		switch {
		case strings.HasPrefix(line, "!"):
			if err := repl.SpawnShell(line); err != nil {
				b.printer.Error(err)
			}
			continue
		case strings.HasPrefix(line, ":"):
			if _, err := b.runCommand(ctx, line); err != nil {
				b.printer.Error(err)
			}
			continue
		}

		b.printer.Separator()
		if err := b.ask(ctx, line); err != nil {
			b.printer.Error(err)
			b.logger.Error("send failed", "error", err)
			if ctx.Err() != nil {
				_ = b.save()
				return ctx.Err()
			}
			continue
		}
		b.printer.Separator()
	}

	return b.save()
}

// ask sends the prompt through the engine and presents the answer.
func (b *ChatBot) ask(ctx context.Context, prompt string) error {
	answer, err := b.engine.Send(ctx, prompt)
	if err != nil {
		return err
	}

	display := answer
	if b.cfg.PrintFile {
		display = render.ExtractFenced(answer)
	}
	b.printer.Answer(b.engine.Model(), display)

	if b.speaker != nil {
		if err := b.speaker.Speak(ctx, display); err != nil {
			b.printer.Error(err)
			b.logger.Warn("tts playback failed", "error", err)
		}
	}
	return nil
}

func (b *ChatBot) save() error {
	if err := b.st.Save(b.meta, b.engine.History()); err != nil {
		b.logger.Error("failed to save session", "session_id", b.meta.ID, "error", err)
		return err
	}
	b.logger.Info("session saved", "session_id", b.meta.ID, "messages", len(b.engine.History()))
	return nil
}
