package files

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/ronnyzhao/AirCat/internal/domain/track"
	"github.com/ronnyzhao/AirCat/internal/infra/audio"
	"github.com/ronnyzhao/AirCat/internal/infra/tags"
)

// Errors
var (
	ErrInvalidFile       = errors.New("invalid media file")
	ErrBadIndex          = errors.New("index out of range")
	ErrOpenFailed        = errors.New("cannot open track")
	ErrSeekFailed        = errors.New("seek out of range")
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrNoTrack           = errors.New("no track selected")
)

// tickInterval is how often the scheduler checks the active track for
// end of stream.
const tickInterval = 100 * time.Millisecond

// session is one opened track: its decoder and its stream in the sink.
type session struct {
	src    *audio.Source
	latch  *audio.DrainLatch
	stream *audio.Stream
}

// position returns the play cursor in whole seconds. Runs under the
// sink lock so the device goroutine cannot pull mid-read.
func (s *session) position(out audio.Output) int {
	out.Lock()
	defer out.Unlock()
	return int(s.src.Format.SampleRate.D(s.src.Position()) / time.Second)
}

// length returns the track length in whole seconds.
func (s *session) length(out audio.Output) int {
	out.Lock()
	defer out.Unlock()
	return int(s.src.Format.SampleRate.D(s.src.Len()) / time.Second)
}

// seek moves the decoder to the given second.
func (s *session) seek(out audio.Output, position int) error {
	out.Lock()
	defer out.Unlock()

	frames := s.src.Format.SampleRate.N(time.Duration(position) * time.Second)
	if position < 0 || frames > s.src.Len() {
		return errors.Wrapf(ErrSeekFailed, "position %d", position)
	}
	if err := s.src.Seek(frames); err != nil {
		return errors.Wrapf(ErrSeekFailed, "position %d", position)
	}
	return nil
}

// Controller owns the playlist, the playback state machine and the
// scheduler goroutine. A single mutex serializes HTTP callers and the
// scheduler; decoder opens and tag reads happen under it.
type Controller struct {
	mu sync.Mutex

	playlist *playlist
	root     string // directory request paths resolve against

	out    audio.Output
	decode audio.DecodeFunc

	// Playback state
	state    State
	active   *session // the audible track
	draining *session // the replaced track, finishing its buffered audio

	// Scheduler
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewController creates a controller bound to the shared output sink.
// The scheduler is not running until Start is called.
func NewController(out audio.Output) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		playlist: newPlaylist(),
		out:      out,
		decode:   audio.Decode,
		state:    StateStopped,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// SetRoot changes the directory subsequent adds resolve against.
// Tracks already in the playlist keep their resolved paths.
func (c *Controller) SetRoot(root string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.root = root
}

// Start launches the scheduler goroutine.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	go c.run()
}

// Close stops the scheduler, then releases all playback state. The
// scheduler goroutine is joined before any session is touched.
func (c *Controller) Close() {
	c.mu.Lock()
	wasStarted := c.started
	c.started = false
	c.mu.Unlock()

	c.cancel()
	if wasStarted {
		<-c.done
	}
	c.Stop()
	c.Flush()
}

// Add resolves path against the root, reads its tags and appends it to
// the playlist. Returns the new track's index.
func (c *Controller) Add(path string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addLocked(path)
}

// Remove drops the track at index. Removing the selected track stops
// playback first; removing an earlier one shifts the cursor down.
func (c *Controller) Remove(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= c.playlist.len() {
		return errors.Wrapf(ErrBadIndex, "remove %d", index)
	}
	if index == c.playlist.cur {
		c.stopLocked()
	}
	c.playlist.removeAt(index)
	return nil
}

// Flush stops playback and empties the playlist.
func (c *Controller) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.playlist.flush()
}

// Play starts the track at index. Index -1 replays the current
// selection, or track 0 when nothing is selected. Any previous
// playback is fully stopped first.
func (c *Controller) Play(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playLocked(index)
}

// Pause toggles the active stream between playing and paused. It is a
// no-op when nothing is active.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return
	}
	switch c.state {
	case StatePlaying:
		c.out.PauseStream(c.active.stream)
		c.state = StatePaused
	case StatePaused:
		c.out.PlayStream(c.active.stream)
		c.state = StatePlaying
	}
}

// Stop releases the active and draining sessions and clears the
// selection. Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Seek moves the active track to position, in seconds.
func (c *Controller) Seek(position int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return ErrNoTrack
	}
	return c.active.seek(c.out, position)
}

// Next steps to the following track, skipping any that fail to open.
// No-op when nothing is selected; running past the last track stops
// playback.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playlist.cur < 0 {
		return
	}
	c.advanceLocked(1)

	// A user skip does not let the replaced track finish draining.
	c.releaseLocked(c.draining)
	c.draining = nil
}

// Prev steps to the preceding track. Same skip and stop semantics as
// Next, towards the front of the playlist.
func (c *Controller) Prev() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playlist.cur < 0 {
		return
	}
	c.advanceLocked(-1)

	c.releaseLocked(c.draining)
	c.draining = nil
}

// State returns the playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selection returns the cursor index, -1 when nothing is selected.
func (c *Controller) Selection() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playlist.cur
}

// Tracks returns a copy of the playlist entries in order.
func (c *Controller) Tracks() []track.Track {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]track.Track, c.playlist.len())
	copy(out, c.playlist.entries)
	return out
}

// Status returns the selected track and its play cursor and length in
// seconds. ok is false when nothing is selected.
func (c *Controller) Status() (t track.Track, pos, length int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playlist.cur < 0 {
		return track.Track{}, 0, 0, false
	}
	t, _ = c.playlist.at(c.playlist.cur)
	if c.active != nil {
		pos = c.active.position(c.out)
		length = c.active.length(c.out)
	}
	return t, pos, length, true
}

func (c *Controller) addLocked(path string) (int, error) {
	if path == "" {
		return 0, errors.Wrap(ErrInvalidFile, "empty path")
	}

	full := filepath.Join(c.root, path)
	meta, err := tags.ReadFile(full)
	if err != nil {
		zlog.Warn().Err(err).Msgf("files: cannot add %s", path)
		return 0, errors.Wrapf(ErrInvalidFile, "add %s", path)
	}

	idx := c.playlist.append(track.Track{Path: full, Metadata: meta})
	zlog.Debug().Msgf("files: added %s as track %d", path, idx)
	return idx, nil
}

func (c *Controller) playLocked(index int) error {
	if index < 0 {
		if index = c.playlist.cur; index < 0 {
			index = 0
		}
	}
	if index >= c.playlist.len() {
		return errors.Wrapf(ErrBadIndex, "play %d", index)
	}

	c.stopLocked()

	s, err := c.openLocked(index)
	if err != nil {
		c.playlist.cur = -1
		c.state = StateStopped
		return err
	}

	c.active = s
	c.playlist.cur = index
	c.state = StatePlaying
	c.out.PlayStream(s.stream)
	return nil
}

// openLocked opens the track at index and adds its stream to the sink,
// paused. Must be called with the lock held.
func (c *Controller) openLocked(index int) (*session, error) {
	t, ok := c.playlist.at(index)
	if !ok {
		return nil, errors.Wrapf(ErrBadIndex, "open %d", index)
	}

	src, err := c.decode(t.Path)
	if err != nil {
		zlog.Warn().Err(err).Msgf("files: cannot open %s", t.Base())
		return nil, errors.Wrapf(ErrOpenFailed, "open %s", t.Base())
	}

	latch := audio.NewDrainLatch(src)
	stream, err := c.out.AddStream(latch, src.Format)
	if err != nil {
		src.Close()
		return nil, errors.Wrapf(ErrOpenFailed, "stream %s", t.Base())
	}

	return &session{src: src, latch: latch, stream: stream}, nil
}

// stopLocked releases both sessions and clears the selection.
// Must be called with lock held.
func (c *Controller) stopLocked() {
	c.releaseLocked(c.active)
	c.releaseLocked(c.draining)
	c.active = nil
	c.draining = nil
	c.playlist.cur = -1
	c.state = StateStopped
}

// releaseLocked removes a session's stream from the sink and closes
// its decoder. Safe on nil.
func (c *Controller) releaseLocked(s *session) {
	if s == nil {
		return
	}
	c.out.RemoveStream(s.stream)
	if err := s.src.Close(); err != nil {
		zlog.Warn().Err(err).Msg("files: close decoder")
	}
}

// advanceLocked releases the draining session, demotes the active one
// and steps the cursor by dir until a track opens. Tracks that fail to
// open are skipped in the same direction; running past either end of
// the playlist stops playback without wrapping.
// Must be called with lock held.
func (c *Controller) advanceLocked(dir int) {
	// The stream parked here at the previous transition has had a
	// whole track to finish; let it go now.
	c.releaseLocked(c.draining)
	c.draining = c.active
	c.active = nil

	for idx := c.playlist.cur + dir; idx >= 0 && idx < c.playlist.len(); idx += dir {
		s, err := c.openLocked(idx)
		if err != nil {
			zlog.Warn().Err(err).Msgf("files: skipping track %d", idx)
			continue
		}

		c.active = s
		c.playlist.cur = idx
		c.state = StatePlaying
		c.out.PlayStream(s.stream)
		return
	}

	c.playlist.cur = -1
	c.state = StateStopped
}

// run drives end-of-track detection until the context is cancelled.
func (c *Controller) run() {
	defer close(c.done)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick is one scheduler pass: when the active track has reached its
// last second or its decoder has drained, advance to the next track.
// The replaced session keeps draining so the sink can finish emitting
// its buffered audio.
func (c *Controller) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playlist.cur < 0 || c.active == nil {
		return
	}

	pos := c.active.position(c.out)
	length := c.active.length(c.out)
	if pos >= length-1 || c.active.latch.Drained() {
		zlog.Debug().Msgf("files: track %d finished (pos=%ds len=%ds)",
			c.playlist.cur, pos, length)
		c.advanceLocked(1)
	}
}
