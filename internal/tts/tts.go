// Package tts plays answers through a text-to-speech voice.
// Experimental, enabled with --tts.
package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"unicode"
)

const (
	endpoint = "https://translate.google.com/translate_tts"

	// maxSegment is the longest text the endpoint accepts per request.
	maxSegment = 200
)

// Speaker fetches spoken audio for text and plays it through the first
// available external player.
type Speaker struct {
	client *http.Client
	lang   string
	rate   float64
	logger *slog.Logger
}

// New creates a speaker. lang is a two-letter language code (en, de);
// rate is the playback tempo, 1.0 being natural speed.
func New(client *http.Client, lang string, rate float64, logger *slog.Logger) *Speaker {
	return &Speaker{client: client, lang: lang, rate: rate, logger: logger}
}

// Speak plays text segment by segment. It blocks until playback ends.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	player, args, err := findPlayer(s.rate)
	if err != nil {
		return err
	}

	for _, seg := range segments(text, maxSegment) {
		audio, err := s.fetch(ctx, seg)
		if err != nil {
			return err
		}
		if err := play(ctx, player, args, audio); err != nil {
			return err
		}
	}
	return nil
}

func (s *Speaker) fetch(ctx context.Context, text string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", s.lang)
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building tts request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching tts audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts endpoint returned %d", resp.StatusCode)
	}

	s.logger.Debug("fetched tts segment", "chars", len(text))
	return io.ReadAll(resp.Body)
}

func play(ctx context.Context, player string, args []string, audio []byte) error {
	f, err := os.CreateTemp("", "duckchat-tts-*.mp3")
	if err != nil {
		return fmt.Errorf("creating audio temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(audio); err != nil {
		f.Close()
		return fmt.Errorf("writing audio temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing audio temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, player, append(args, f.Name())...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("playing audio with %s: %w", player, err)
	}
	return nil
}

// findPlayer locates an installed audio player and builds its
// rate-adjusted argument list. The temp file path is appended last.
func findPlayer(rate float64) (string, []string, error) {
	if path, err := exec.LookPath("mpv"); err == nil {
		return path, []string{"--really-quiet", fmt.Sprintf("--speed=%g", rate)}, nil
	}
	if path, err := exec.LookPath("ffplay"); err == nil {
		return path, []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-af", fmt.Sprintf("atempo=%g", rate)}, nil
	}
	if path, err := exec.LookPath("play"); err == nil {
		// sox takes effects after the file, so rate is handled by the
		// caller appending the path first; keep it simple and accept
		// natural speed here.
		return path, []string{"-q"}, nil
	}
	return "", nil, fmt.Errorf("no audio player found (install mpv, ffplay or sox)")
}

// segments splits text into whitespace-respecting chunks of at most max
// runes.
func segments(text string, max int) []string {
	words := strings.FieldsFunc(text, unicode.IsSpace)
	var out []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() > 0 && cur.Len()+1+len(w) > max {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
