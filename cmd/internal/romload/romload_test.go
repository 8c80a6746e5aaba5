package romload

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "u2.bin"), []byte{0x01, 0x02}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "U7.BIN"), []byte{0x03, 0x04}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("n/a"), 0o644))

	set, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, set.HasSlot(2))
	assert.True(t, set.HasSlot(7))
	assert.False(t, set.HasSlot(3))
}

func TestLoadZip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "romset.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("tz_u2.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte{0xAA, 0xBB})
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	set, err := Load(zipPath)
	require.NoError(t, err)
	assert.True(t, set.HasSlot(2))
	assert.Equal(t, 2, set.SlotSize(2))
}

func TestLoadMissingPathIsAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestChipNumberFromName(t *testing.T) {
	cases := map[string]int{
		"u2.bin":     2,
		"U9":         9,
		"rom_u7.dat": 7,
		"readme.txt": 0,
	}
	for name, want := range cases {
		n, ok := chipNumberFromName(name)
		if want == 0 {
			assert.False(t, ok, name)
			continue
		}
		assert.True(t, ok, name)
		assert.Equal(t, want, n, name)
	}
}
