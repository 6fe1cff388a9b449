package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"threadscraper/pkg/checkpoint"
	"threadscraper/pkg/config"
	errs "threadscraper/pkg/errors"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/ratelimit"
	"threadscraper/pkg/records"
)

func smallThread(fc *fakeClient, postID string) {
	fc.roots[postID] = rootResponse(postID,
		commentThing(postID+"_1", "t3_"+postID, 0),
		commentThing(postID+"_2", "t3_"+postID, 0),
	)
}

func newTestRunner(t *testing.T, fc *fakeClient, cfg *config.Config) (*Runner, *ratelimit.RecordingSleeper, *countingRecorder) {
	t.Helper()
	f, _ := newTestFetcher(t, fc, cfg)
	sleeper := &ratelimit.RecordingSleeper{}
	rec := &countingRecorder{}
	r := NewRunner(f, logger.NewTestLogger(), WithRunnerSleeper(sleeper), WithRunnerRecorder(rec))
	return r, sleeper, rec
}

func targets() []config.ThreadTarget {
	return []config.ThreadTarget{
		{ID: "aaa", Label: "p1"},
		{ID: "bbb", Label: "p2"},
		{ID: "ccc", Label: "p3"},
	}
}

func TestRunnerProcessesInOrderWithCooldown(t *testing.T) {
	fc := newFakeClient()
	for _, id := range []string{"aaa", "bbb", "ccc"} {
		smallThread(fc, id)
	}
	cfg := testConfig(t)
	r, sleeper, rec := newTestRunner(t, fc, cfg)

	reports, err := r.Run(context.Background(), targets(), RunOptions{})
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, []string{"aaa", "bbb", "ccc"}, fc.rootCalls)
	for i, rep := range reports {
		assert.Equal(t, targets()[i].Label, rep.Target.Label)
		assert.NoError(t, rep.Err)
		require.NotNil(t, rep.Result)
		assert.Equal(t, 2, rep.Result.Comments)
		assert.Equal(t, r.RunID(), rep.Result.Metadata.RunID)
	}

	// between threads only, never after the last one
	assert.Equal(t, []time.Duration{cfg.Fetch.ThreadCooldown, cfg.Fetch.ThreadCooldown}, sleeper.Delays())
	assert.Equal(t, []string{"done", "done", "done"}, rec.outcomes)
}

func TestRunnerSkipsExistingRaw(t *testing.T) {
	fc := newFakeClient()
	for _, id := range []string{"aaa", "bbb", "ccc"} {
		smallThread(fc, id)
	}
	cfg := testConfig(t)
	r, sleeper, _ := newTestRunner(t, fc, cfg)
	require.NoError(t, r.fetcher.Storage().WriteRaw("p1", []records.Comment{{ID: "old"}}))

	reports, err := r.Run(context.Background(), targets(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, reports[0].Skipped)
	assert.Equal(t, "skipped", reports[0].Outcome())
	assert.Equal(t, []string{"bbb", "ccc"}, fc.rootCalls)
	assert.Len(t, sleeper.Delays(), 1)

	done, failed, skipped := Summarize(reports)
	assert.Equal(t, 2, done)
	assert.Zero(t, failed)
	assert.Equal(t, 1, skipped)
}

func TestRunnerOverwriteRefetches(t *testing.T) {
	fc := newFakeClient()
	smallThread(fc, "aaa")
	cfg := testConfig(t)
	r, _, _ := newTestRunner(t, fc, cfg)
	require.NoError(t, r.fetcher.Storage().WriteRaw("p1", []records.Comment{{ID: "old"}}))

	reports, err := r.Run(context.Background(), targets()[:1], RunOptions{Overwrite: true})
	require.NoError(t, err)
	assert.False(t, reports[0].Skipped)
	assert.Equal(t, 2, reports[0].Result.Comments)
}

func TestRunnerContinuesAfterFailure(t *testing.T) {
	fc := newFakeClient()
	fc.rootErrs["aaa"] = errs.New(errs.ErrorTypeServerError, 503, "server error, try again later")
	smallThread(fc, "bbb")
	smallThread(fc, "ccc")
	cfg := testConfig(t)
	r, sleeper, rec := newTestRunner(t, fc, cfg)

	reports, err := r.Run(context.Background(), targets(), RunOptions{})
	require.NoError(t, err)
	assert.ErrorIs(t, reports[0].Err, ErrRootFetchFailed)
	assert.Equal(t, "failed", reports[0].Outcome())
	assert.Len(t, sleeper.Delays(), 2)
	assert.Equal(t, []string{"failed", "done", "done"}, rec.outcomes)

	done, failed, skipped := Summarize(reports)
	assert.Equal(t, 2, done)
	assert.Equal(t, 1, failed)
	assert.Zero(t, skipped)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	fc := newFakeClient()
	for _, id := range []string{"aaa", "bbb", "ccc"} {
		smallThread(fc, id)
	}
	cfg := testConfig(t)
	f, _ := newTestFetcher(t, fc, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleeper := ratelimit.SleeperFunc(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})
	r := NewRunner(f, logger.NewTestLogger(), WithRunnerSleeper(sleeper))

	reports, err := r.Run(ctx, targets(), RunOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, reports, 1)
	assert.Equal(t, []string{"aaa"}, fc.rootCalls)
}

func TestRunnerCooldownOverride(t *testing.T) {
	fc := newFakeClient()
	smallThread(fc, "aaa")
	smallThread(fc, "bbb")
	cfg := testConfig(t)
	f, _ := newTestFetcher(t, fc, cfg)
	sleeper := &ratelimit.RecordingSleeper{}
	r := NewRunner(f, nil, WithRunnerSleeper(sleeper), WithCooldown(time.Minute))

	_, err := r.Run(context.Background(), targets()[:2], RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Minute}, sleeper.Delays())
}

func TestRunnerStatus(t *testing.T) {
	fc := newFakeClient()
	cfg := testConfig(t)
	r, _, _ := newTestRunner(t, fc, cfg)

	require.NoError(t, r.fetcher.Storage().WriteRaw("p1", []records.Comment{{ID: "x"}}))
	cp, err := checkpoint.NewManager(cfg.CheckpointDir(), "p2", nil)
	require.NoError(t, err)
	require.NoError(t, cp.Save([]records.Comment{{ID: "y"}, {ID: "z"}}))

	statuses, err := r.Status(targets())
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	assert.True(t, statuses[0].HasRaw)
	assert.Nil(t, statuses[0].Checkpoint)
	assert.False(t, statuses[1].HasRaw)
	require.NotNil(t, statuses[1].Checkpoint)
	assert.Equal(t, 2, statuses[1].Checkpoint.Comments)
	assert.Nil(t, statuses[2].Checkpoint)
	assert.Empty(t, fc.rootCalls)
}
