// Package logger owns the process-wide slog logger. Everything that logs
// goes through L(); InitFromConfig is called once at startup.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"tanishuv-bot/internal/config"
)

var (
	mu     sync.RWMutex
	global *slog.Logger
)

// InitFromConfig builds the global logger from the Log section of the app
// config. A nil config yields the defaults (info-level text output tagged
// with the bot's component name).
func InitFromConfig(c *config.Config) {
	level, format, component := "info", "text", "tanishuv_bot"
	source := false
	if c != nil {
		level, format, component = c.Log.Level, c.Log.Format, c.Log.Component
		source = c.Log.Source
	}

	mu.Lock()
	global = build(os.Stdout, level, format, component, source)
	mu.Unlock()
}

// L returns the global logger, initializing it with defaults on first use.
func L() *slog.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}
	InitFromConfig(nil)
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func build(w io.Writer, level, format, component string, source bool) *slog.Logger {
	text := !strings.EqualFold(strings.TrimSpace(format), "json")
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: source,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// text output gets a human-readable timestamp; JSON keeps RFC 3339
			if a.Key == slog.TimeKey && text && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format("2006-01-02 15:04:05"))
			}
			return a
		},
	}

	var h slog.Handler
	if text {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(h)
	if component != "" {
		l = l.With("component", component)
	}
	return l
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
