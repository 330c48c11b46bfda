// Package files implements the local file playback module: a playlist,
// a playback controller driving the shared audio output, and the HTTP
// routes to control both.
package files

// State represents the playback state.
type State int

const (
	StateStopped State = iota // No track selected
	StatePlaying              // Selected track is emitting audio
	StatePaused               // Selected track is held
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
