// ABOUTME: slog setup for the chat client - JSON or colorized text on stderr
// ABOUTME: The colorized handler keeps log lines short so they sit beside the transcript

package main

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"

	"github.com/Lyzr-Apps/ultimate-super-space/internal/config"
)

// setupLogger builds the client logger. Unknown or empty levels mean warn,
// which keeps routine logging off the transcript.
func setupLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Level != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(cfg.Level)); err == nil {
			level = parsed
		}
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(&colorHandler{out: &lockedWriter{w: w}, level: level})
}

// lockedWriter serializes whole log lines from every derived handler
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(p)
	return err
}

var levelLabels = []struct {
	min   slog.Level
	label string
	paint *color.Color
}{
	{slog.LevelError, "ERR", color.New(color.FgRed, color.Bold)},
	{slog.LevelWarn, "WRN", color.New(color.FgYellow)},
	{slog.LevelInfo, "INF", color.New(color.FgCyan)},
	{slog.LevelDebug, "DBG", color.New(color.FgMagenta)},
}

func levelLabel(l slog.Level) string {
	for _, ll := range levelLabels {
		if l >= ll.min {
			return ll.paint.Sprint(ll.label)
		}
	}
	return "???"
}

// colorHandler writes "15:04:05 LVL message key=value ..." lines.
// Attributes bound with WithAttrs are rendered once, with the group path in
// effect at that point.
type colorHandler struct {
	out    *lockedWriter
	level  slog.Leveler
	prefix string
	bound  []byte
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 128)
	buf = append(buf, color.HiBlackString(r.Time.Format("15:04:05"))...)
	buf = append(buf, ' ')
	buf = append(buf, levelLabel(r.Level)...)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)
	buf = append(buf, h.bound...)

	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.prefix, a)
		return true
	})
	buf = append(buf, '\n')

	return h.out.write(buf)
}

func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			buf = appendAttr(buf, prefix, ga)
		}
		return buf
	}
	buf = append(buf, color.HiBlackString(" "+prefix+a.Key+"=")...)
	return append(buf, a.Value.String()...)
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.bound = append([]byte(nil), h.bound...)
	for _, a := range attrs {
		next.bound = appendAttr(next.bound, h.prefix, a)
	}
	return &next
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}
