package files

import "github.com/ronnyzhao/AirCat/internal/domain/track"

// playlist is the ordered track list plus the selection cursor.
// All access happens under the controller lock.
type playlist struct {
	entries []track.Track
	cur     int // index of the selected track, -1 when none
}

func newPlaylist() *playlist {
	return &playlist{cur: -1}
}

func (p *playlist) len() int {
	return len(p.entries)
}

func (p *playlist) at(index int) (track.Track, bool) {
	if index < 0 || index >= len(p.entries) {
		return track.Track{}, false
	}
	return p.entries[index], true
}

// append adds a track to the end and returns its index.
func (p *playlist) append(t track.Track) int {
	p.entries = append(p.entries, t)
	return len(p.entries) - 1
}

// removeAt drops the entry at index, keeping the cursor on the same
// track. The caller has already stopped playback when index is the
// selection.
func (p *playlist) removeAt(index int) {
	p.entries = append(p.entries[:index], p.entries[index+1:]...)
	if index < p.cur {
		p.cur--
	}
}

func (p *playlist) flush() {
	p.entries = nil
	p.cur = -1
}
