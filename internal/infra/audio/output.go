package audio

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"
)

// Config holds output device configuration.
type Config struct {
	SampleRate int           // Device sample rate in Hz
	Buffer     time.Duration // Device buffer length
}

// Output is the shared audio sink playback streams attach to.
// Streams are added paused; Play and Pause flip one stream without
// touching the others. Remove detaches a stream from the mixer; audio
// the device has already buffered still emits.
type Output interface {
	AddStream(src beep.Streamer, format beep.Format) (*Stream, error)
	PlayStream(s *Stream)
	PauseStream(s *Stream)
	RemoveStream(s *Stream)

	// Lock and Unlock guard direct access to any streamer the device
	// is pulling from, such as position reads and seeks.
	Lock()
	Unlock()

	Close() error
}

// Stream identifies one attached output stream.
type Stream struct {
	ID uuid.UUID

	ctrl *beep.Ctrl
}

// speakerOutput drives the beep speaker device.
type speakerOutput struct {
	mu      sync.Mutex
	rate    beep.SampleRate
	streams map[uuid.UUID]*Stream
}

// OpenSpeaker initializes the speaker device and returns the output
// sink bound to it. The device stays open for the life of the process.
func OpenSpeaker(cfg Config) (Output, error) {
	rate := beep.SampleRate(cfg.SampleRate)
	if rate <= 0 {
		rate = 44100
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 100 * time.Millisecond
	}

	if err := speaker.Init(rate, rate.N(buffer)); err != nil {
		return nil, errors.Wrap(err, "failed to initialize speaker")
	}
	zlog.Info().Msgf("audio: speaker open: rate=%d buffer=%v", rate, buffer)

	return &speakerOutput{
		rate:    rate,
		streams: make(map[uuid.UUID]*Stream),
	}, nil
}

func (o *speakerOutput) AddStream(src beep.Streamer, format beep.Format) (*Stream, error) {
	s := &Stream{
		ID: uuid.New(),
		ctrl: &beep.Ctrl{
			Streamer: beep.Resample(4, format.SampleRate, o.rate, src),
			Paused:   true,
		},
	}

	o.mu.Lock()
	o.streams[s.ID] = s
	o.mu.Unlock()

	speaker.Play(s.ctrl)
	zlog.Debug().Msgf("audio: stream attached: id=%s rate=%d", s.ID, format.SampleRate)
	return s, nil
}

func (o *speakerOutput) PlayStream(s *Stream) {
	if s == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
}

func (o *speakerOutput) PauseStream(s *Stream) {
	if s == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
}

func (o *speakerOutput) RemoveStream(s *Stream) {
	if s == nil {
		return
	}

	// Detaching the streamer makes the mixer drop the ctrl on its next
	// pull; whatever the device already buffered still plays out.
	speaker.Lock()
	s.ctrl.Streamer = nil
	speaker.Unlock()

	o.mu.Lock()
	delete(o.streams, s.ID)
	o.mu.Unlock()

	zlog.Debug().Msgf("audio: stream detached: id=%s", s.ID)
}

func (o *speakerOutput) Lock() {
	speaker.Lock()
}

func (o *speakerOutput) Unlock() {
	speaker.Unlock()
}

// Close detaches every remaining stream. The device itself is left to
// the process; none of the beep players tear it down either.
func (o *speakerOutput) Close() error {
	o.mu.Lock()
	remaining := make([]*Stream, 0, len(o.streams))
	for _, s := range o.streams {
		remaining = append(remaining, s)
	}
	o.mu.Unlock()

	for _, s := range remaining {
		o.RemoveStream(s)
	}
	zlog.Info().Msg("audio: speaker closed")
	return nil
}
