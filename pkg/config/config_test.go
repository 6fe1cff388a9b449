package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 6, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 3*time.Second, cfg.Retry.NetworkDelay)
	assert.Equal(t, 500, cfg.Fetch.RootLimit)
	assert.Equal(t, 10, cfg.Fetch.RootDepth)
	assert.Equal(t, MaxChunkSize, cfg.Fetch.ChunkSize)
	assert.Equal(t, 50, cfg.Fetch.CheckpointEvery)
	assert.Equal(t, 10, cfg.Fetch.ProgressEvery)
	assert.Equal(t, 2*time.Second, cfg.Fetch.PacingDelay)
	assert.Equal(t, 2*time.Second, cfg.Fetch.InitialDelay)
	assert.Equal(t, 20*time.Minute, cfg.Fetch.ThreadCooldown)
	assert.Equal(t, DefaultDeletedAuthor, cfg.Aggregate.DeletedAuthor)
	assert.Equal(t, 0.05, cfg.Aggregate.TopFraction)
	assert.Empty(t, cfg.Threads)

	require.NoError(t, cfg.Validate())
}

func TestCheckpointDir(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg.Output.Directory, cfg.CheckpointDir())

	cfg.Output.CheckpointDirectory = "/var/tmp/ckpt"
	assert.Equal(t, "/var/tmp/ckpt", cfg.CheckpointDir())
}

func TestThreadTargetNames(t *testing.T) {
	bare := ThreadTarget{ID: "1p931uu", Label: "bears_eagles"}
	assert.Equal(t, "bears_eagles", bare.GroupName())
	assert.Equal(t, "bears_eagles", bare.GameName())

	half := ThreadTarget{ID: "1qfnyfb", Label: "bills_broncos_p1", Group: "bills_broncos", Game: "Bills vs Broncos"}
	assert.Equal(t, "bills_broncos", half.GroupName())
	assert.Equal(t, "Bills vs Broncos", half.GameName())

	cfg := DefaultConfig()
	cfg.Threads = []ThreadTarget{bare, half}
	got, ok := cfg.FindThread("bills_broncos_p1")
	require.True(t, ok)
	assert.Equal(t, "1qfnyfb", got.ID)
	_, ok = cfg.FindThread("missing")
	assert.False(t, ok)
}

func TestThreadTargetValidate(t *testing.T) {
	assert.NoError(t, ThreadTarget{ID: "1p931uu", Label: "bears_eagles"}.Validate())

	tests := []struct {
		name   string
		target ThreadTarget
		field  string
	}{
		{"path in label", ThreadTarget{ID: "abc123", Label: "../x"}, "ThreadTarget.Label"},
		{"backslash in label", ThreadTarget{ID: "abc123", Label: `a\b`}, "ThreadTarget.Label"},
		{"space in label", ThreadTarget{ID: "abc123", Label: "a b"}, "ThreadTarget.Label"},
		{"id with slash", ThreadTarget{ID: "abc/123", Label: "ok"}, "ThreadTarget.ID"},
		{"missing id", ThreadTarget{Label: "ok"}, "ThreadTarget.ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("THREADSCRAPER_USER_AGENT", "test-agent/1.0")
	t.Setenv("THREADSCRAPER_ACCESS_TOKEN", "tok")
	t.Setenv("THREADSCRAPER_OUTPUT_DIR", "/tmp/raw")
	t.Setenv("THREADSCRAPER_REQUESTS_PER_MINUTE", "30")
	t.Setenv("THREADSCRAPER_MAX_ATTEMPTS", "4")
	t.Setenv("THREADSCRAPER_PACING_DELAY", "500ms")
	t.Setenv("THREADSCRAPER_THREAD_COOLDOWN", "1m")
	t.Setenv("THREADSCRAPER_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "test-agent/1.0", cfg.API.UserAgent)
	assert.Equal(t, "tok", cfg.API.AccessToken)
	assert.Equal(t, "/tmp/raw", cfg.Output.Directory)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetch.PacingDelay)
	assert.Equal(t, time.Minute, cfg.Fetch.ThreadCooldown)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("THREADSCRAPER_MAX_ATTEMPTS", "many")
	t.Setenv("THREADSCRAPER_PACING_DELAY", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "THREADSCRAPER_MAX_ATTEMPTS")
	assert.Contains(t, err.Error(), "THREADSCRAPER_PACING_DELAY")
	assert.Equal(t, 6, cfg.Retry.MaxAttempts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			modify: func(c *Config) {},
		},
		{
			name:    "chunk size above endpoint limit",
			modify:  func(c *Config) { c.Fetch.ChunkSize = 101 },
			wantErr: "ChunkSize",
		},
		{
			name:    "zero attempts",
			modify:  func(c *Config) { c.Retry.MaxAttempts = 0 },
			wantErr: "MaxAttempts",
		},
		{
			name:    "missing user agent",
			modify:  func(c *Config) { c.API.UserAgent = "" },
			wantErr: "UserAgent",
		},
		{
			name:    "bad base url",
			modify:  func(c *Config) { c.API.BaseURL = "not a url" },
			wantErr: "BaseURL",
		},
		{
			name:    "negative pacing",
			modify:  func(c *Config) { c.Fetch.PacingDelay = -time.Second },
			wantErr: "PacingDelay",
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "Level",
		},
		{
			name:    "top fraction above one",
			modify:  func(c *Config) { c.Aggregate.TopFraction = 1.5 },
			wantErr: "TopFraction",
		},
		{
			name: "thread without label",
			modify: func(c *Config) {
				c.Threads = []ThreadTarget{{ID: "abc123"}}
			},
			wantErr: "Label",
		},
		{
			name: "label with path separator",
			modify: func(c *Config) {
				c.Threads = []ThreadTarget{{ID: "abc123", Label: "../escape"}}
			},
			wantErr: "Label",
		},
		{
			name: "duplicate labels",
			modify: func(c *Config) {
				c.Threads = []ThreadTarget{
					{ID: "abc123", Label: "game"},
					{ID: "def456", Label: "game"},
				}
			},
			wantErr: "duplicate thread label",
		},
		{
			name: "base delay above max delay",
			modify: func(c *Config) {
				c.Retry.BaseDelay = time.Hour
			},
			wantErr: "base delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"output-dir":          "/data/out",
		"log-level":           "warn",
		"no-color":            true,
		"overwrite":           true,
		"max-attempts":        3,
		"requests-per-minute": 10,
		"pacing-delay":        time.Duration(0),
		"cooldown":            5 * time.Minute,
		"checkpoint-every":    0,
		"user-agent":          "",
	})

	assert.Equal(t, "/data/out", cfg.Output.Directory)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Logging.NoColor)
	assert.True(t, cfg.Output.Overwrite)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 10, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, time.Duration(0), cfg.Fetch.PacingDelay)
	assert.Equal(t, 5*time.Minute, cfg.Fetch.ThreadCooldown)
	// zero and empty values leave defaults alone
	assert.Equal(t, 50, cfg.Fetch.CheckpointEvery)
	assert.NotEmpty(t, cfg.API.UserAgent)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Fetch.PacingDelay = 1500 * time.Millisecond
	cfg.Threads = []ThreadTarget{
		{ID: "1qfnyfb", Label: "bills_broncos_p1", Group: "bills_broncos", Game: "Bills vs Broncos"},
	}
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, cfg.Fetch.PacingDelay, loaded.Fetch.PacingDelay)
	assert.Equal(t, cfg.Threads, loaded.Threads)
}

func TestLoadFromFileDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
fetch:
  pacing_delay: 250ms
  thread_cooldown: 15m
threads:
  - id: 1p931uu
    label: bears_eagles
    game: Bears vs Eagles
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))
	assert.Equal(t, 250*time.Millisecond, cfg.Fetch.PacingDelay)
	assert.Equal(t, 15*time.Minute, cfg.Fetch.ThreadCooldown)
	// untouched sections keep their defaults
	assert.Equal(t, 500, cfg.Fetch.RootLimit)
	require.Len(t, cfg.Threads, 1)
	assert.Equal(t, "Bears vs Eagles", cfg.Threads[0].GameName())
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch: [unclosed"), 0644))
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  directory: /from/file\nlogging:\n  level: WARN\n"), 0644))
	t.Setenv("THREADSCRAPER_OUTPUT_DIR", "/from/env")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Output.Directory)
	assert.Equal(t, "warn", cfg.Logging.Level)

	cfg, err = Load(path, map[string]interface{}{"output-dir": "/from/flag"})
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.Output.Directory)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch:\n  chunk_size: 500\n"), 0644))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.AccessToken = "secret"
	red := cfg.Redacted()
	assert.Equal(t, "********", red.API.AccessToken)
	assert.Equal(t, "secret", cfg.API.AccessToken)
}
