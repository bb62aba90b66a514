package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cf.ini")
	contents := "[link]\nuri = /dev/ttyUSB0@57600\n\n[cache]\ndir = /var/cache/cf\n\n[log]\nlevel = debug\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0@57600", cfg.LinkURI)
	assert.Equal(t, 115200, cfg.BaudRate) // no explicit baud key: default unchanged
	assert.Equal(t, "/var/cache/cf", cfg.CacheDir)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
