package wav

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterProducesValidHeaderAndSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	w, err := NewWriter(f, 31250)
	require.NoError(t, err)
	samples := []int16{0, 100, -100, 32767, -32768}
	require.NoError(t, w.WriteSamples(samples))
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, headerSize+len(samples)*2)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "fmt ", string(data[12:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[20:22]), "PCM format tag")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:24]), "mono")
	assert.Equal(t, uint32(31250), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[34:36]))
	assert.Equal(t, "data", string(data[36:40]))
	assert.Equal(t, uint32(len(samples)*2), binary.LittleEndian.Uint32(data[40:44]))
	assert.Equal(t, uint32(36+len(samples)*2), binary.LittleEndian.Uint32(data[4:8]))

	var got []int16
	r := bytes.NewReader(data[headerSize:])
	for {
		var s int16
		if err := binary.Read(r, binary.LittleEndian, &s); err == io.EOF {
			break
		} else {
			require.NoError(t, err)
		}
		got = append(got, s)
	}
	assert.Equal(t, samples, got)
}
