package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		0:   "error",
		200: "2xx",
		403: "4xx",
		429: "4xx",
		503: "5xx",
	}
	for code, want := range tests {
		assert.Equal(t, want, StatusClass(code), "code %d", code)
	}
}

func TestObserveRequestAndRetry(t *testing.T) {
	c := New()

	c.ObserveRequest("/comments/abc.json", 200, 120*time.Millisecond)
	c.ObserveRequest("/api/morechildren.json", 429, 10*time.Millisecond)
	c.ObserveRequest("/api/morechildren.json", 429, 10*time.Millisecond)
	c.ObserveRequest("/api/morechildren.json", 0, time.Second)
	c.ObserveRetry("/api/morechildren.json", "rate_limit")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("/comments/abc.json", "2xx")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("/api/morechildren.json", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("/api/morechildren.json", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retries.WithLabelValues("/api/morechildren.json", "rate_limit")))
}

func TestFetchCounters(t *testing.T) {
	c := New()

	c.ChunkProcessed("p1")
	c.ChunkProcessed("p1")
	c.ChunkFailed("p1")
	c.CommentsRecorded("p1", 120)
	c.CommentsRecorded("p1", 0)
	c.CheckpointSaved()
	c.SetQueueDepth(7)
	c.ThreadFinished("done")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.chunks.WithLabelValues("p1", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.chunks.WithLabelValues("p1", "failed")))
	assert.Equal(t, 120.0, testutil.ToFloat64(c.commentsRecorded.WithLabelValues("p1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.checkpoints))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.queueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.threads.WithLabelValues("done")))
}

func TestWriteTextfile(t *testing.T) {
	c := New()
	c.CheckpointSaved()

	require.NoError(t, c.WriteTextfile(""))

	path := filepath.Join(t.TempDir(), "textfile", "threadscraper.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "threadscraper_fetch_checkpoints_saved_total 1"))
}
