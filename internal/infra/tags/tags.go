// Package tags reads audio file metadata using the dhowden/tag library.
package tags

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"

	"github.com/ronnyzhao/AirCat/internal/domain/track"
)

// ReadFile parses the tags of the audio file at path.
// An error is returned only when the file itself cannot be opened.
// A readable file with no parseable tags yields (nil, nil); the caller
// keeps the track with empty metadata.
func ReadFile(path string) (*track.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audio file")
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, nil
	}
	return FromTag(m), nil
}

// FromTag converts parsed tag data into track metadata.
func FromTag(m tag.Metadata) *track.Metadata {
	num, _ := m.Track()
	md := &track.Metadata{
		Title:   m.Title(),
		Artist:  m.Artist(),
		Album:   m.Album(),
		Comment: m.Comment(),
		Genre:   m.Genre(),
		Track:   num,
		Year:    m.Year(),
	}
	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		md.Picture = &track.Picture{
			Data: pic.Data,
			MIME: pic.MIMEType,
		}
	}
	return md
}
