package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"threadscraper/pkg/auth"
	"threadscraper/pkg/config"
	"threadscraper/pkg/logger"
)

func TestExampleConfigIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threadscraper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(exampleConfig), 0644))

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))
	require.NoError(t, cfg.Validate())

	assert.Len(t, cfg.Threads, 4)
	assert.Equal(t, 20*time.Minute, cfg.Fetch.ThreadCooldown)
	assert.Equal(t, "bills_broncos", cfg.Threads[0].GroupName())
	assert.Equal(t, "packers_cowboys", cfg.Threads[2].GroupName())
}

func TestCollectFlagsOnlyChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().String("output-dir", "", "")
	cmd.Flags().Int("checkpoint-every", 0, "")
	cmd.Flags().Duration("cooldown", 0, "")
	cmd.Flags().Float64("top-fraction", 0, "")
	cmd.Flags().Bool("overwrite", false, "")
	cmd.Flags().String("unrelated", "", "")

	require.NoError(t, cmd.ParseFlags([]string{"--output-dir", "out", "--cooldown", "5m", "--top-fraction", "0.1", "--unrelated", "x"}))

	flags := collectFlags(cmd)
	assert.Equal(t, map[string]interface{}{
		"output-dir":   "out",
		"cooldown":     5 * time.Minute,
		"top-fraction": 0.1,
	}, flags)

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(flags)
	assert.Equal(t, "out", cfg.Output.Directory)
	assert.Equal(t, 5*time.Minute, cfg.Fetch.ThreadCooldown)
}

func TestResolveTarget(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Threads = []config.ThreadTarget{{ID: "abc123", Label: "game1"}}
	t.Cleanup(func() { threadID, threadLabel = "", "" })

	target, err := resolveTarget(cfg, []string{"game1"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", target.ID)

	_, err = resolveTarget(cfg, []string{"missing"})
	assert.Error(t, err)
	_, err = resolveTarget(cfg, nil)
	assert.Error(t, err)

	threadID = "zzz999"
	target, err = resolveTarget(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, config.ThreadTarget{ID: "zzz999", Label: "zzz999"}, target)

	threadLabel = "game1"
	_, err = resolveTarget(cfg, nil)
	assert.ErrorContains(t, err, "configured for thread abc123")
}

func TestResolveTargetRejectsUnsafeAdHocValues(t *testing.T) {
	cfg := config.DefaultConfig()
	t.Cleanup(func() { threadID, threadLabel = "", "" })

	threadID, threadLabel = "zzz999", "../x"
	_, err := resolveTarget(cfg, nil)
	assert.ErrorContains(t, err, "invalid thread target")

	threadID, threadLabel = "zz/../9", ""
	_, err = resolveTarget(cfg, nil)
	assert.ErrorContains(t, err, "invalid thread target")
}

func TestSelectTargets(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Threads = []config.ThreadTarget{{ID: "a1", Label: "one"}, {ID: "b2", Label: "two"}}
	t.Cleanup(func() { onlyLabels = nil })

	all, err := selectTargets(cfg)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyLabels = []string{"two"}
	some, err := selectTargets(cfg)
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "b2", some[0].ID)

	onlyLabels = []string{"three"}
	_, err = selectTargets(cfg)
	assert.Error(t, err)
}

func TestApplyCredentials(t *testing.T) {
	original := newCredentialManager
	t.Cleanup(func() { newCredentialManager = original })

	useStores := func(stores ...auth.CredentialStore) {
		newCredentialManager = func() (*auth.Manager, error) {
			return auth.NewManagerWithStores(stores...), nil
		}
	}

	t.Run("no stored account is silent", func(t *testing.T) {
		useStores(auth.NewMemoryStore())
		cfg := config.DefaultConfig()
		log := logger.NewTestLogger()

		require.NoError(t, applyCredentials(cfg, log, ""))
		assert.Empty(t, cfg.API.AccessToken)
		assert.Empty(t, log.GetMessagesByLevel("WARN"))
	})

	t.Run("unreadable store is logged", func(t *testing.T) {
		broken := auth.NewMemoryStore()
		broken.ListError = errors.New("keychain locked")
		useStores(broken)
		cfg := config.DefaultConfig()
		log := logger.NewTestLogger()

		require.NoError(t, applyCredentials(cfg, log, ""))
		assert.Empty(t, cfg.API.AccessToken)
		assert.Len(t, log.GetMessagesByLevel("WARN"), 1)
		assert.True(t, log.HasMessage("Could not read stored credentials, continuing anonymously"))
	})

	t.Run("default account is applied", func(t *testing.T) {
		store := auth.NewMemoryStore()
		require.NoError(t, store.Store(&auth.Account{Name: "default", AccessToken: "token_1234567890", UserAgent: "threadscraper/test"}))
		useStores(store)
		cfg := config.DefaultConfig()

		require.NoError(t, applyCredentials(cfg, logger.NewTestLogger(), ""))
		assert.Equal(t, "token_1234567890", cfg.API.AccessToken)
		assert.Equal(t, "threadscraper/test", cfg.API.UserAgent)
	})

	t.Run("missing named account fails", func(t *testing.T) {
		useStores(auth.NewMemoryStore())
		err := applyCredentials(config.DefaultConfig(), logger.NewTestLogger(), "research")
		assert.ErrorIs(t, err, auth.ErrCredentialsNotFound)
	})
}
