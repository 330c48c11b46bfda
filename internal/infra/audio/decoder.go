// Package audio wraps the beep decoding and playback stack behind the
// small surface the playback engine needs: decode a local file into a
// seekable sample stream, and attach streams to the shared output device.
package audio

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned when no decoder handles the file.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Source bundles a decoded audio stream with the file it reads from.
// Position, Len and Seek operate in sample frames; use Format.SampleRate
// to convert to wall time.
type Source struct {
	beep.StreamSeekCloser

	Format beep.Format
	file   *os.File
}

// Close releases the decoder and the underlying file.
func (s *Source) Close() error {
	var err error
	if s.StreamSeekCloser != nil {
		err = s.StreamSeekCloser.Close()
	}
	if s.file != nil {
		// The decoder may already have closed the file; a second
		// close error is harmless.
		_ = s.file.Close()
	}
	return err
}

// DecodeFunc opens an audio file into a Source.
type DecodeFunc func(path string) (*Source, error)

// Decode opens the audio file at path, picking the decoder from the
// file extension. Formats without a decoder (such as .m4a or .aac)
// fail with ErrUnsupportedFormat.
func Decode(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audio file")
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch filepath.Ext(path) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg", ".oga":
		streamer, format, err = vorbis.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		f.Close()
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to decode %s", filepath.Base(path))
	}

	return &Source{StreamSeekCloser: streamer, Format: format, file: f}, nil
}

// DrainLatch wraps a streamer and latches once the output device has
// pulled it to exhaustion. Drained is safe to read without holding the
// device lock.
type DrainLatch struct {
	src     beep.Streamer
	drained atomic.Bool
}

// NewDrainLatch wraps src.
func NewDrainLatch(src beep.Streamer) *DrainLatch {
	return &DrainLatch{src: src}
}

// Stream implements beep.Streamer.
func (l *DrainLatch) Stream(samples [][2]float64) (int, bool) {
	n, ok := l.src.Stream(samples)
	if !ok {
		l.drained.Store(true)
	}
	return n, ok
}

// Err implements beep.Streamer.
func (l *DrainLatch) Err() error {
	return l.src.Err()
}

// Drained reports whether the wrapped streamer has been exhausted.
func (l *DrainLatch) Drained() bool {
	return l.drained.Load()
}
