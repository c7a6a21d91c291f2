package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/imagebot/internal/prompt"
)

type fakePruner struct {
	cutoff time.Time
	err    error
}

func (p *fakePruner) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return 3, p.err
}

func jobNames(t *testing.T, cfg Config) []string {
	t.Helper()
	s, err := newScheduler(cfg, prompt.NewTracker(nil), &fakePruner{}, time.Now)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	var names []string
	for _, j := range s.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func TestSchedulerJobsFollowConfig(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Normalize())
	assert.Empty(t, jobNames(t, cfg))

	cfg.Prompt.PendingTTL = 10 * time.Minute
	assert.ElementsMatch(t, []string{jobPromptExpire}, jobNames(t, cfg))

	cfg.Audit.RetentionDays = 30
	assert.ElementsMatch(t, []string{jobPromptExpire, jobAuditPrune}, jobNames(t, cfg))
}

func TestExpirePrompts(t *testing.T) {
	tracker := prompt.NewTracker(nil)
	tracker.BeginWaiting(1)
	tracker.BeginWaiting(2)
	ctx := context.Background()

	assert.Zero(t, expirePrompts(ctx, tracker, time.Hour, time.Now()))
	assert.True(t, tracker.IsWaiting(1))

	assert.Equal(t, 2, expirePrompts(ctx, tracker, time.Minute, time.Now().Add(time.Hour)))
	assert.False(t, tracker.IsWaiting(1))
	assert.False(t, tracker.IsWaiting(2))
}

func TestPruneAudit(t *testing.T) {
	now := time.Date(2026, 5, 31, 3, 0, 0, 0, time.UTC)
	p := &fakePruner{}
	pruneAudit(context.Background(), p, 30, now)
	assert.Equal(t, time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC), p.cutoff)

	p.err = errors.New("locked")
	assert.NotPanics(t, func() { pruneAudit(context.Background(), p, 30, now) })
}
