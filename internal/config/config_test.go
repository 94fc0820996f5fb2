package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("AVS_CONFIG", "")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendJSON, c.Catalog.Backend)
	assert.Equal(t, "output.json", c.Catalog.Path)
	assert.Equal(t, "cdn", c.Probe.Target)
	assert.Equal(t, 8, c.Probe.TimeoutSeconds)
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: 0.0.0.0:9000
catalog:
  backend: sqlite
cdn:
  base_url: https://file.example/stream
probe:
  target: wrapper
  timeout_seconds: 3
log:
  level: debug
`), 0o644))

	t.Setenv("AVS_CDN_BASE_URL", "https://env.example/stream")
	t.Setenv("AVS_PROBE_TIMEOUT_SECONDS", "12")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", c.Server.Addr)
	assert.Equal(t, BackendSQLite, c.Catalog.Backend)
	assert.Equal(t, "https://env.example/stream", c.CDN.BaseURL)
	assert.Equal(t, "wrapper", c.Probe.Target)
	assert.Equal(t, 12, c.Probe.TimeoutSeconds)
	assert.Equal(t, "debug", c.Log.Level)
	// Non renseigné dans le fichier: défaut conservé.
	assert.Equal(t, "https://api.anivideo.net/videohls.php", c.CDN.WrapperURL)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: /data/avs.db\n"), 0o644))
	t.Setenv("AVS_CONFIG", path)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/data/avs.db", c.Database.Path)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog:\n  backend: postgres\nprobe:\n  target: edge\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
	assert.Contains(t, err.Error(), "probe.target")
}
