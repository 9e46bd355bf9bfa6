package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadAndWatch(t *testing.T) {
	cfg, v, err := LoadAndWatch("clobd", zap.NewNop(), nil)
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadAndWatchMissingFileUsesDefaults(t *testing.T) {
	cfg, _, err := LoadAndWatch("does-not-exist", zap.NewNop(), nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CLOBD_HTTP_ADDR", ":9999")

	_, v, err := LoadAndWatch("clobd", zap.NewNop(), nil)
	require.NoError(t, err)

	assert.Equal(t, ":9999", v.GetString("http.addr"))
}

func TestHotReloadDeliversFreshConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reloadtest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":8080\"\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
	})

	reloaded := make(chan Config, 16)
	cfg, _, err := LoadAndWatch("reloadtest", zap.NewNop(), func(next Config) {
		select {
		case reloaded <- next:
		default:
		}
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Addr)

	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":9090\"\n"), 0o644))

	// The watcher may fire on intermediate write states; wait for the final one.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case next := <-reloaded:
			if next.HTTP.Addr != ":9090" {
				continue
			}
			// The originally returned snapshot is untouched.
			assert.Equal(t, ":8080", cfg.HTTP.Addr)
			return
		case <-deadline:
			t.Fatal("config reload not observed")
		}
	}
}
