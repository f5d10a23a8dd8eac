package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firemap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_path: app
group_paths:
  core: core
id_style: uuid
database: tree.db
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "app", cfg.BasePath)
	assert.Equal(t, map[string]string{"core": "core"}, cfg.GroupPaths)
	assert.Equal(t, IDStyleUUID, cfg.IDStyle)
	assert.Equal(t, "tree.db", cfg.Database)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_BadIDStyle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firemap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id_style: sequential\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id_style")
}
