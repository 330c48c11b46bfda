package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV writes a PCM16 stereo WAV file with the given number of
// sample frames of silence.
func writeWAV(t *testing.T, path string, sampleRate, frames int) {
	t.Helper()

	dataLen := frames * 4 // 2 channels x 16 bit
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*4))
	binary.Write(&buf, binary.LittleEndian, uint16(4))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestDecode_WAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 44100, 4410)

	src, err := Decode(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 44100, int(src.Format.SampleRate))
	assert.Equal(t, 4410, src.Len())
	assert.Equal(t, 0, src.Position())

	require.NoError(t, src.Seek(100))
	assert.Equal(t, 100, src.Position())
}

func TestDecode_UnsupportedExtension(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{name: "m4a has no decoder", file: "song.m4a"},
		{name: "aac has no decoder", file: "song.aac"},
		{name: "arbitrary extension", file: "song.xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

			src, err := Decode(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupportedFormat))
			assert.Nil(t, src)
		})
	}
}

func TestDecode_MissingFile(t *testing.T) {
	src, err := Decode(filepath.Join(t.TempDir(), "gone.mp3"))
	assert.Error(t, err)
	assert.Nil(t, src)
}

func TestDecode_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFFnope"), 0644))

	src, err := Decode(path)
	assert.Error(t, err)
	assert.Nil(t, src)
}

// stubStreamer serves a fixed number of frames, then reports drained.
type stubStreamer struct {
	remaining int
}

func (s *stubStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.remaining <= 0 {
		return 0, false
	}
	n := len(samples)
	if n > s.remaining {
		n = s.remaining
	}
	s.remaining -= n
	return n, true
}

func (s *stubStreamer) Err() error { return nil }

func TestDrainLatch(t *testing.T) {
	latch := NewDrainLatch(&stubStreamer{remaining: 64})
	buf := make([][2]float64, 512)

	n, ok := latch.Stream(buf)
	assert.Equal(t, 64, n)
	assert.True(t, ok)
	assert.False(t, latch.Drained())

	n, ok = latch.Stream(buf)
	assert.Equal(t, 0, n)
	assert.False(t, ok)
	assert.True(t, latch.Drained())
}
