// Package track provides the Track domain entity.
package track

import "path/filepath"

// Track represents one audio file entry in the playlist.
// The path is absolute, resolved against the configured media root at
// add time. Metadata is parsed once and cached; it stays nil when the
// file carries no parseable tags.
type Track struct {
	Path     string    // Absolute resolved file path
	Metadata *Metadata // Parsed tag data (nil if none)
}

// Metadata holds the tag data of an audio file.
type Metadata struct {
	Title   string
	Artist  string
	Album   string
	Comment string
	Genre   string
	Track   int // Track number within the album
	Year    int
	Picture *Picture // Embedded artwork (nil if none)
}

// Picture holds embedded artwork data.
type Picture struct {
	Data []byte
	MIME string
}

// Base returns the file name of the track without its directory.
func (t *Track) Base() string {
	return filepath.Base(t.Path)
}

// HasPicture reports whether the track carries embedded artwork.
func (t *Track) HasPicture() bool {
	return t.Metadata != nil && t.Metadata.Picture != nil &&
		len(t.Metadata.Picture.Data) > 0
}
