package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/oggyb/cardlink/internal/config"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

type Config struct {
	Level      string
	Format     Format
	Component  string
	WithSource bool
	Output     io.Writer
}

var global atomic.Pointer[slog.Logger]

// InitFromConfig installs the process logger described by the app config.
func InitFromConfig(c *config.Config) {
	if c == nil {
		Init(Config{})
		return
	}
	Init(Config{
		Level:      c.Log.Level,
		Format:     Format(c.Log.Format),
		Component:  c.Log.Component,
		WithSource: c.Log.Source,
	})
}

// Init replaces the process logger and makes it the slog default.
func Init(c Config) {
	l := New(c)
	global.Store(l)
	slog.SetDefault(l)
}

// New builds a logger without touching global state.
func New(c Config) *slog.Logger {
	out := c.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(c.Level),
		AddSource:   c.WithSource,
		ReplaceAttr: redact,
	}

	var h slog.Handler
	if Format(strings.ToLower(string(c.Format))) == FormatJSON {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}

	l := slog.New(h)
	if c.Component != "" {
		l = l.With("component", c.Component)
	}
	return l
}

// L returns the process logger, creating an info-level text logger on first use.
func L() *slog.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	global.CompareAndSwap(nil, New(Config{}))
	return global.Load()
}

type ctxKey struct{}

// WithContext stores a request-scoped logger in ctx.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request-scoped logger, or the process one.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return L()
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// sensitive attribute keys never reach the output.
var sensitive = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"token":         {},
	"authorization": {},
	"jwt_secret":    {},
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitive[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}
