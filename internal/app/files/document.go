package files

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ronnyzhao/AirCat/internal/domain/track"
	"github.com/ronnyzhao/AirCat/internal/infra/tags"
)

// audioExt is the suffix whitelist for the file browser.
var audioExt = []string{".mp3", ".m4a", ".mp4", ".aac", ".ogg", ".wav"}

// trackObject builds the JSON object for one track. Tag fields appear
// only when metadata was read; the picture only when requested and
// embedded in the file.
func trackObject(t track.Track, withPicture bool) map[string]any {
	obj := map[string]any{"file": t.Base()}

	m := t.Metadata
	if m == nil {
		return obj
	}
	obj["title"] = m.Title
	obj["artist"] = m.Artist
	obj["album"] = m.Album
	obj["comment"] = m.Comment
	obj["genre"] = m.Genre
	obj["track"] = m.Track
	obj["year"] = m.Year
	if withPicture && t.HasPicture() {
		obj["picture"] = base64.StdEncoding.EncodeToString(m.Picture.Data)
		obj["mime"] = m.Picture.MIME
	}
	return obj
}

// statusDocument builds the current-track object, or {"file": null}
// when nothing is selected.
func statusDocument(c *Controller, withPicture bool) map[string]any {
	t, pos, length, ok := c.Status()
	if !ok {
		return map[string]any{"file": nil}
	}

	obj := trackObject(t, withPicture)
	obj["pos"] = pos
	obj["length"] = length
	return obj
}

// playlistDocument builds the playlist as a JSON array, without
// pictures.
func playlistDocument(c *Controller) []map[string]any {
	tracks := c.Tracks()
	docs := make([]map[string]any, 0, len(tracks))
	for _, t := range tracks {
		docs = append(docs, trackObject(t, false))
	}
	return docs
}

// listDocument builds the browse document for path resolved against
// root: directory names under "directory", audio files with their tags
// and pictures under "file". Dotfiles and non-audio names are skipped.
func listDocument(root, path string) (map[string]any, error) {
	dir := filepath.Join(root, path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(ErrDirectoryNotFound, "list %s", path)
	}

	dirs := make([]string, 0)
	files := make([]map[string]any, 0)
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		// Stat follows symlinks, so a linked directory browses.
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			continue
		}

		switch {
		case info.Mode().IsRegular() && hasAudioExt(name):
			full := filepath.Join(dir, name)
			meta, _ := tags.ReadFile(full)
			files = append(files, trackObject(track.Track{Path: full, Metadata: meta}, true))
		case info.IsDir():
			dirs = append(dirs, name)
		}
	}

	return map[string]any{"directory": dirs, "file": files}, nil
}

func hasAudioExt(name string) bool {
	for _, ext := range audioExt {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
