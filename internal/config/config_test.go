package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParsesPortsAndSwitches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sanescand.conf")
	contents := "# a comment\n\n/dev/parport0\nnoprecal\nUSB:04a9:220e\nNORealCal\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/parport0", "USB:04a9:220e"}, cfg.Ports)
	assert.True(t, cfg.NoPrecal)
	assert.True(t, cfg.NoRealCal)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Ports)
	assert.False(t, cfg.NoPrecal)
}
