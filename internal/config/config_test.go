package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKeys = map[string]string{
	"addr":    "server.addr",
	"limit":   "study.limit",
	"shuffle": "study.shuffle",
}

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("addr", ":8080", "listen address")
	fs.Int("limit", 0, "card limit")
	fs.Bool("shuffle", false, "shuffle cards")
	fs.Bool("verbose", false, "not a config key")
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", testFlags(t), testKeys)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 12*time.Hour, cfg.Server.SessionTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "recall.db", cfg.Library.Path)
	assert.Zero(t, cfg.Study.Limit)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9000"
  shutdown_timeout: 3s
study:
  limit: 10
log:
  level: debug
`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := Load(path, testFlags(t), testKeys)
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.Server.Addr)
		assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, 10, cfg.Study.Limit)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("RECALL_SERVER_ADDR", ":9100")
		t.Setenv("RECALL_STUDY_LIMIT", "20")
		cfg, err := Load(path, testFlags(t), testKeys)
		require.NoError(t, err)
		assert.Equal(t, ":9100", cfg.Server.Addr)
		assert.Equal(t, 20, cfg.Study.Limit)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("RECALL_SERVER_ADDR", ":9100")
		cfg, err := Load(path, testFlags(t, "--addr", ":9200", "--shuffle"), testKeys)
		require.NoError(t, err)
		assert.Equal(t, ":9200", cfg.Server.Addr)
		assert.True(t, cfg.Study.Shuffle)
	})
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("bad level", func(t *testing.T) {
		t.Setenv("RECALL_LOG_LEVEL", "loud")
		_, err := Load("", nil, nil)
		assert.ErrorContains(t, err, "invalid config")
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := Load("", testFlags(t, "--limit", "-1"), testKeys)
		assert.ErrorContains(t, err, "invalid config")
	})

	t.Run("missing library dir", func(t *testing.T) {
		t.Setenv("RECALL_LIBRARY_DIR", filepath.Join(t.TempDir(), "absent"))
		_, err := Load("", nil, nil)
		assert.ErrorContains(t, err, "invalid config")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil, nil)
		assert.ErrorContains(t, err, "load config file")
	})
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.addr", envKey("RECALL_SERVER_ADDR"))
	assert.Equal(t, "server.shutdown_timeout", envKey("RECALL_SERVER_SHUTDOWN_TIMEOUT"))
}

func TestStudy_Options(t *testing.T) {
	opts := Study{Start: 2, Limit: 5, Shuffle: true}.Options()
	require.NotNil(t, opts.Start)
	assert.Equal(t, 2, *opts.Start)
	assert.Nil(t, opts.End)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, 5, *opts.Limit)
	assert.True(t, opts.Shuffle)
}
