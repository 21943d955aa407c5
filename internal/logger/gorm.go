package logger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Gorm adapts a slog.Logger to gorm's logger so SQL traces share the
// request logger's attributes and output.
type Gorm struct {
	log   *slog.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

// NewGorm returns a gorm logger writing through l. Queries slower than slow
// are logged at warn level.
func NewGorm(l *slog.Logger, level gormlogger.LogLevel, slow time.Duration) *Gorm {
	return &Gorm{log: l.With("component", "gorm"), level: level, slow: slow}
}

func (g *Gorm) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *Gorm) Info(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Info {
		g.from(ctx).InfoContext(ctx, msg, "args", args)
	}
}

func (g *Gorm) Warn(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Warn {
		g.from(ctx).WarnContext(ctx, msg, "args", args)
	}
}

func (g *Gorm) Error(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Error {
		g.from(ctx).ErrorContext(ctx, msg, "args", args)
	}
}

func (g *Gorm) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Error:
		sql, rows := fc()
		g.from(ctx).ErrorContext(ctx, "query failed", "sql", sql, "rows", rows, "elapsed", elapsed, "err", err)
	case g.slow > 0 && elapsed > g.slow && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.from(ctx).WarnContext(ctx, "slow query", "sql", sql, "rows", rows, "elapsed", elapsed)
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.from(ctx).DebugContext(ctx, "query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}

// from prefers the request logger so SQL lines carry request_id.
func (g *Gorm) from(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l.With("component", "gorm")
	}
	return g.log
}
