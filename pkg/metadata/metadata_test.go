package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"threadscraper/pkg/reddit"
)

func TestFromLinkAndRoundTrip(t *testing.T) {
	dir := t.TempDir()
	link := &reddit.LinkData{
		ID:          "1p931uu",
		Name:        "t3_1p931uu",
		Title:       "Game Thread: Bears at Eagles",
		Subreddit:   "nfl",
		NumComments: 200,
		CreatedUTC:  1764000000,
	}

	meta := FromLink("bears_eagles", "run-1", link)
	meta.Rows = 150
	meta.Chunks = 4
	meta.StartedAt = time.Date(2026, 1, 18, 10, 0, 0, 0, time.UTC)
	meta.FinishedAt = meta.StartedAt.Add(90 * time.Second)

	assert.Equal(t, "t3_1p931uu", meta.Fullname)
	assert.Equal(t, time.Unix(1764000000, 0).UTC(), meta.PostCreatedAt)
	assert.InDelta(t, 0.75, meta.Coverage(), 1e-9)
	assert.Equal(t, 90*time.Second, meta.Duration())

	assert.False(t, Exists(dir, "bears_eagles"))
	require.NoError(t, meta.Save(dir))
	assert.True(t, Exists(dir, "bears_eagles"))

	loaded, err := Load(dir, "bears_eagles")
	require.NoError(t, err)
	assert.Equal(t, meta.Title, loaded.Title)
	assert.Equal(t, meta.Rows, loaded.Rows)
	assert.True(t, meta.StartedAt.Equal(loaded.StartedAt))
}

func TestCoverageWithoutReportedCount(t *testing.T) {
	meta := FromLink("x", "run", nil)
	meta.Rows = 10
	assert.Zero(t, meta.Coverage())
	assert.Zero(t, meta.Duration())
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir(), "nope")
	assert.Error(t, err)
}
