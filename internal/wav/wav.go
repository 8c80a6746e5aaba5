// Package wav writes 16-bit mono PCM audio as a WAV file. It is CLI
// wiring, not a core decoder contract: only cmd/dcsplay imports it, and no
// decoder package depends on it; stdlib-only, since no third-party WAV
// encoder appears anywhere in the retrieved pack.
package wav

import (
	"encoding/binary"
	"io"
)

const (
	numChannels   = 1
	bitsPerSample = 16
	headerSize    = 44
)

// Writer incrementally emits a canonical 44-byte-header PCM WAV file to w,
// one sample at a time, then finalizes the header's size fields on Close.
// w must also implement io.WriteSeeker-like random access via Seek, since
// the RIFF/data chunk sizes are only known once every sample is written.
type Writer struct {
	w          io.WriteSeeker
	sampleRate int
	samples    int
}

// NewWriter writes a placeholder header (sizes filled in by Close) and
// returns a Writer ready to accept samples via WriteSample.
func NewWriter(w io.WriteSeeker, sampleRate int) (*Writer, error) {
	wr := &Writer{w: w, sampleRate: sampleRate}
	if err := wr.writeHeader(0); err != nil {
		return nil, err
	}
	return wr, nil
}

// WriteSample appends one signed 16-bit little-endian PCM sample.
func (w *Writer) WriteSample(s int16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(s))
	if _, err := w.w.Write(buf[:]); err != nil {
		return err
	}
	w.samples++
	return nil
}

// WriteSamples appends a batch of samples.
func (w *Writer) WriteSamples(s []int16) error {
	for _, v := range s {
		if err := w.WriteSample(v); err != nil {
			return err
		}
	}
	return nil
}

// Close rewrites the header with the final chunk sizes now that the
// sample count is known. It does not close the underlying writer.
func (w *Writer) Close() error {
	if _, err := w.w.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return w.writeHeader(w.samples)
}

func (w *Writer) writeHeader(samples int) error {
	dataSize := uint32(samples * 2)
	byteRate := uint32(w.sampleRate * numChannels * bitsPerSample / 8)
	blockAlign := uint16(numChannels * bitsPerSample / 8)

	var hdr [headerSize]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 36+dataSize)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(hdr[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], numChannels)
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], blockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], bitsPerSample)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataSize)

	_, err := w.w.Write(hdr[:])
	return err
}
