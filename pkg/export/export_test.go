package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"threadscraper/pkg/aggregate"
	"threadscraper/pkg/config"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/records"
	"threadscraper/pkg/storage"
)

func openMemory(t *testing.T) *Exporter {
	t.Helper()
	e, err := Open(":memory:", logger.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestUpsertComments(t *testing.T) {
	e := openMemory(t)
	ctx := context.Background()

	require.NoError(t, e.UpsertComments(ctx, "p1", []records.Comment{
		{ID: "a", Author: "A", Body: "first", Score: records.IntPtr(1)},
		{ID: "b", Author: "B", Body: "second"},
	}))
	require.NoError(t, e.UpsertComments(ctx, "p1", []records.Comment{
		{ID: "a", Author: "A", Body: "edited", Score: records.IntPtr(7)},
	}))
	require.NoError(t, e.UpsertComments(ctx, "p2", []records.Comment{{ID: "a", Author: "A"}}))
	require.NoError(t, e.UpsertComments(ctx, "p2", nil))

	n, err := e.CountComments(ctx, "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	var row CommentRow
	require.NoError(t, e.DB().Where("thread = ? AND comment_id = ?", "p1", "a").First(&row).Error)
	assert.Equal(t, "edited", row.Body)
	require.NotNil(t, row.Score)
	assert.Equal(t, 7, *row.Score)

	var b CommentRow
	require.NoError(t, e.DB().Where("comment_id = ?", "b").First(&b).Error)
	assert.Nil(t, b.Score)
}

func TestReplaceUserStats(t *testing.T) {
	e := openMemory(t)
	ctx := context.Background()
	avg := 1.5

	require.NoError(t, e.ReplaceUserStats(ctx, "g", []aggregate.UserStats{
		{Author: "A", CommentCount: 2, AvgScore: &avg, TotalScore: 3, Game: "Game"},
		{Author: "B", CommentCount: 1, Game: "Game"},
	}))
	require.NoError(t, e.ReplaceUserStats(ctx, "g", []aggregate.UserStats{
		{Author: "C", CommentCount: 5, Game: "Game"},
		{Author: "A", CommentCount: 2, Game: "Game"},
	}))

	top, err := e.TopAuthors(ctx, "g", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "C", top[0].Author)
	assert.Equal(t, "A", top[1].Author)
	assert.Nil(t, top[1].AvgScore)
}

func TestRun(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Directory = t.TempDir()
	targets := []config.ThreadTarget{
		{ID: "a1", Label: "bb_p1", Game: "Bills vs Broncos", Group: "bills_broncos"},
		{ID: "a2", Label: "bb_p2", Game: "Bills vs Broncos", Group: "bills_broncos"},
		{ID: "c1", Label: "missing"},
	}
	require.NoError(t, storage.WriteCommentsFile(filepath.Join(cfg.Output.Directory, "raw_bb_p1.csv"), []records.Comment{
		{ID: "1", Author: "A", Score: records.IntPtr(1)},
		{ID: "2", Author: "[deleted]"},
	}))
	require.NoError(t, storage.WriteCommentsFile(filepath.Join(cfg.Output.Directory, "raw_bb_p2.csv"), []records.Comment{
		{ID: "2", Author: "[deleted]"},
		{ID: "3", Author: "B", Score: records.IntPtr(2)},
	}))

	e, err := Open(filepath.Join(t.TempDir(), "db", "threads.db"), logger.NewTestLogger())
	require.NoError(t, err)
	defer e.Close()

	summary, err := e.Run(context.Background(), cfg, targets)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Threads)
	assert.Equal(t, 4, summary.Comments)
	assert.Equal(t, 1, summary.Groups)
	assert.Equal(t, 2, summary.Users)
	assert.Equal(t, []string{"missing"}, summary.Missing)

	top, err := e.TopAuthors(context.Background(), "bills_broncos", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "A", top[0].Author)
}
