package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNormalize(t *testing.T) {
	cfg := Config{Host: "db", Name: "suggest", User: "bot", Password: "p@ss word"}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, 5, cfg.MaxConnections)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Equal(t, "postgres://bot:p%40ss%20word@db:5432/suggest?sslmode=disable", cfg.URL())
	assert.NotContains(t, cfg.Redacted(), "word")

	assert.Error(t, (&Config{Name: "x"}).Normalize())
	assert.Error(t, (&Config{Host: "x"}).Normalize())
}

func TestMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.up.sql", "0001_a.up.sql", "0001_a.down.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	files := listMigrationFiles(dir)
	assert.Equal(t, []string{"0001_a.up.sql", "0002_b.up.sql"}, files)
	assert.Equal(t, []string{"0002_b.up.sql"}, selectApplied(files, 1, 2))
	assert.Empty(t, selectApplied(files, 2, 2))
	assert.Equal(t, uint64(2), parseVersion("0002_b.up.sql"))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a,b", preview([]string{"a", "b"}, 3))
	assert.Equal(t, "a,b,+2", preview([]string{"a", "b", "c", "d"}, 2))
	assert.Equal(t, "", preview(nil, 2))
}
