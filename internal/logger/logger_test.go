package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oggyb/cardlink/internal/config"
)

func buffered(c Config) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	c.Output = &buf
	return New(c), &buf
}

func TestNew_TextFormat(t *testing.T) {
	l, out := buffered(Config{Level: "debug", Format: FormatText, Component: "test"})
	l.Info("card sent", "sender", "7")

	s := out.String()
	assert.Contains(t, s, "card sent")
	assert.Contains(t, s, "component=test")
	assert.Contains(t, s, "sender=7")
}

func TestNew_JSONFormat(t *testing.T) {
	l, out := buffered(Config{Level: "info", Format: "JSON", Component: "json_test"})
	l.Info("payment approved", "tx", "42")

	s := out.String()
	assert.Contains(t, s, `"msg":"payment approved"`)
	assert.Contains(t, s, `"component":"json_test"`)
	assert.Contains(t, s, `"tx":"42"`)
}

func TestNew_LevelFilter(t *testing.T) {
	l, out := buffered(Config{Level: "error"})
	l.Info("should not appear")
	l.Error("should appear")

	assert.NotContains(t, out.String(), "should not appear")
	assert.Contains(t, out.String(), "should appear")
}

func TestNew_RedactsSecrets(t *testing.T) {
	l, out := buffered(Config{})
	l.Info("login", "password", "hunter22", "Token", "abc.def", "user", "ann")

	s := out.String()
	assert.NotContains(t, s, "hunter22")
	assert.NotContains(t, s, "abc.def")
	assert.Contains(t, s, "password=[redacted]")
	assert.Contains(t, s, "user=ann")
}

func TestFromContext(t *testing.T) {
	l, out := buffered(Config{Level: "debug"})

	ctx := WithContext(context.Background(), l.With("request_id", "abc"))
	FromContext(ctx).Info("handling")
	assert.Contains(t, out.String(), "request_id=abc")

	assert.Same(t, L(), FromContext(context.Background()))
}

func TestInitFromConfig(t *testing.T) {
	InitFromConfig(&config.Config{Log: config.LogConfig{Level: "warn", Format: "json", Component: "cfg_test"}})
	t.Cleanup(func() { Init(Config{}) })

	ctx := context.Background()
	assert.True(t, L().Enabled(ctx, slog.LevelWarn))
	assert.False(t, L().Enabled(ctx, slog.LevelInfo))
	assert.Same(t, L(), slog.Default())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestGorm_Trace(t *testing.T) {
	l, out := buffered(Config{Level: "debug"})
	g := NewGorm(l, gormlogger.Warn, 50*time.Millisecond)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	g.Trace(context.Background(), time.Now(), sql, nil)
	assert.Empty(t, out.String(), "fast queries are quiet at warn level")

	g.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, out.String())

	g.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, out.String(), "slow query")

	out.Reset()
	g.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	assert.Contains(t, out.String(), "query failed")
	assert.Contains(t, out.String(), "component=gorm")

	out.Reset()
	g.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	assert.Empty(t, out.String())
}

func TestGorm_UsesRequestLogger(t *testing.T) {
	base, _ := buffered(Config{Level: "debug"})
	reqLog, out := buffered(Config{Level: "debug"})
	g := NewGorm(base, gormlogger.Info, 0)

	ctx := WithContext(context.Background(), reqLog.With("request_id", "r1"))
	g.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 2", 1 }, nil)

	assert.Contains(t, out.String(), "request_id=r1")
	assert.Contains(t, out.String(), "SELECT 2")
}
