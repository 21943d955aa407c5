package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/cardlink/internal/logger"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) ExpireSubscriptions(context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestAddSubscriptionSweep_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(logger.Discard())
	assert.Error(t, s.AddSubscriptionSweep("not a cron", &countingSweeper{}))
}

func TestRunSweep(t *testing.T) {
	s := NewScheduler(logger.Discard())
	ok := &countingSweeper{}
	s.runSweep(ok)
	assert.Equal(t, int32(1), ok.calls.Load())

	failing := &countingSweeper{err: errors.New("db down")}
	s.runSweep(failing)
	assert.Equal(t, int32(1), failing.calls.Load())
}

func TestSchedulerRunsJobs(t *testing.T) {
	s := NewScheduler(logger.Discard())
	sw := &countingSweeper{}
	require.NoError(t, s.AddSubscriptionSweep("@every 1s", sw))

	s.Start()
	assert.Eventually(t, func() bool { return sw.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

type countingCleaner struct{ calls atomic.Int32 }

func (c *countingCleaner) Cleanup(time.Time) { c.calls.Add(1) }

func TestAddIdleSweep(t *testing.T) {
	s := NewScheduler(logger.Discard())
	assert.Error(t, s.AddIdleSweep("@every nope", &countingCleaner{}))

	c := &countingCleaner{}
	require.NoError(t, s.AddIdleSweep("@every 1s", c))
	s.Start()
	assert.Eventually(t, func() bool { return c.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestScheduler_RecoveredPanicGoesToLogger(t *testing.T) {
	out := &lockedBuffer{}
	s := NewScheduler(slog.New(slog.NewTextHandler(out, nil)))
	_, err := s.cron.AddFunc("@every 1s", func() { panic("boom") })
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return strings.Contains(out.String(), "boom") }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	assert.Contains(t, out.String(), "component=cron")
	assert.Contains(t, out.String(), "level=ERROR")
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	var l cron.Logger = cronLogger{slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	l.Info("wake", "now", "t1")
	l.Error(errors.New("bad"), "job failed", "entry", 3)

	assert.Contains(t, buf.String(), "level=DEBUG msg=wake now=t1")
	assert.Contains(t, buf.String(), "msg=\"job failed\" entry=3 err=bad")
}
