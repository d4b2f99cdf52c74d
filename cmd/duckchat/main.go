package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"duckchat/internal/chatbot"
	"duckchat/internal/config"
	"duckchat/internal/render"
)

const version = "0.3.0"

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "duckchat",
	Short: "Terminal chat client for the DuckDuckGo AI backend",
	Long: `duckchat is an interactive terminal client for the DuckDuckGo chat
backend. It keeps a multi-turn conversation, streams answers, renders
them as Markdown, and persists input history and sessions across runs.

Inside the chat, lines starting with ":" run meta-commands (:help for a
list) and lines starting with "!" are passed through to the shell.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cfg.Model, "model", "gpt-4o-mini",
		"model to chat with, see --list-models for the choices")
	flags.BoolVar(&cfg.ListModels, "list-models", false,
		"list the models usable with --model and exit without starting a chat")
	flags.StringVarP(&cfg.File, "file", "f", "",
		"append contents of file to the prompt")
	flags.BoolVar(&cfg.Debug, "debug", false,
		"enable debug logging")
	flags.StringVarP(&cfg.OneShot, "one-shot", "s", "",
		"execute the prompt and exit")
	flags.BoolVar(&cfg.TTS, "tts", false,
		"enable text-to-speech (experimental)")
	flags.StringVar(&cfg.TTSLang, "tts-lang", "en",
		"text-to-speech language (en for English, de for German)")
	flags.Float64Var(&cfg.TTSRate, "tts-rate", 1.1,
		"rate of the text-to-speech voice")
	flags.BoolVar(&cfg.PrintFile, "print-file", false,
		"extract the single code block from the answer, for in-place file editing (experimental)")
	flags.StringVar(&cfg.SessionID, "session-id", "",
		"resume a previously saved session by ID")
}

func run(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	envCfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.BaseURL = envCfg.BaseURL
	cfg.DBPath = envCfg.DBPath
	cfg.HistoryFile = envCfg.HistoryFile
	cfg.HTTPTimeout = envCfg.HTTPTimeout

	models := config.DefaultModels()
	printer := render.NewPrinter(cmd.OutOrStdout())

	if cfg.ListModels {
		printer.Models(models)
		return nil
	}

	// Reject unknown aliases before any network call.
	if _, err := models.Resolve(cfg.Model); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := chatbot.New(ctx, cfg, models)
	if err != nil {
		return err
	}
	return bot.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		render.NewPrinter(os.Stderr).Error(err)
		os.Exit(1)
	}
}
