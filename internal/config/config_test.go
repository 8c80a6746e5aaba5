package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParsedFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaultsWithNoFileOrFlags(t *testing.T) {
	fs := newParsedFlagSet(t)
	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), cfg.Volume)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "device", cfg.Output)
	assert.Equal(t, -1, cfg.Track)
	assert.False(t, cfg.FastBoot)
}

func TestLoadFileSuppliesDefaultsFlagsWin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dcsplay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rom_path: /roms/tz\nvolume: 128\nlog_level: debug\n"), 0o644))

	fs := newParsedFlagSet(t, "--volume=64")
	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, "/roms/tz", cfg.ROMPath, "file value carries through untouched by flags")
	assert.Equal(t, "debug", cfg.LogLevel, "file value carries through untouched by flags")
	assert.Equal(t, byte(64), cfg.Volume, "flag explicitly set beats the file's value")
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	fs := newParsedFlagSet(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"), fs)
	require.NoError(t, err)
	assert.Equal(t, defaults(), cfg)
}

func TestLoadMalformedFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid: yaml"), 0o644))

	fs := newParsedFlagSet(t)
	_, err := Load(path, fs)
	assert.Error(t, err)
}
