package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/records"
)

func TestCheckpointManager(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewTestLogger()

	mgr, err := NewManager(dir, "bills_broncos_p1", log)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "checkpoint_bills_broncos_p1.csv"), mgr.Path())

	t.Run("LoadMissing", func(t *testing.T) {
		comments, err := mgr.Load()
		require.NoError(t, err)
		assert.Nil(t, comments)
		assert.False(t, mgr.Exists())

		info, err := mgr.GetCheckpointInfo()
		require.NoError(t, err)
		assert.Nil(t, info)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		acc := records.NewAccumulator(
			records.Comment{ID: "0012", Author: "a", Score: records.IntPtr(1), ParentID: "t3_x"},
			records.Comment{ID: "b", Author: "[deleted]", ParentID: "t1_0012", Depth: 1},
			records.Comment{ID: "c", Author: "c", Body: "multi\nline", ParentID: "t3_x"},
		)
		require.NoError(t, mgr.Save(acc.Comments()))
		assert.True(t, mgr.Exists())
		assert.True(t, log.HasMessage("Checkpoint saved"))

		loaded, err := mgr.Load()
		require.NoError(t, err)

		reloaded := records.NewAccumulator(loaded...)
		assert.Equal(t, acc.Len(), reloaded.Len())
		for _, c := range acc.Comments() {
			assert.True(t, reloaded.Has(c.ID), c.ID)
		}
		assert.Equal(t, acc.Comments(), loaded)

		info, err := mgr.GetCheckpointInfo()
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, 3, info.Comments)
		assert.Equal(t, mgr.Path(), info.Path)
	})

	t.Run("SaveReplacesSnapshot", func(t *testing.T) {
		require.NoError(t, mgr.Save([]records.Comment{{ID: "only"}}))
		loaded, err := mgr.Load()
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, "only", loaded[0].ID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, mgr.Delete())
		assert.False(t, mgr.Exists())
		// deleting twice is fine
		require.NoError(t, mgr.Delete())
	})

	t.Run("CorruptCheckpoint", func(t *testing.T) {
		require.NoError(t, os.WriteFile(mgr.Path(), []byte("not,a,checkpoint\n"), 0644))
		_, err := mgr.Load()
		assert.Error(t, err)
	})
}
