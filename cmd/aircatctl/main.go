// Package main provides a command-line client for the AirCat server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
)

var (
	app    = kingpin.New("aircatctl", "AirCat server control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()

	// playback commands
	statusCmd = app.Command("status", "Show what is playing")
	playCmd   = app.Command("play", "Play a file, or resume the current selection")
	playFile  = playCmd.Arg("file", "File to play (optional)").String()
	pauseCmd  = app.Command("pause", "Toggle pause")
	stopCmd   = app.Command("stop", "Stop playback")
	nextCmd   = app.Command("next", "Skip to the next track")
	prevCmd   = app.Command("prev", "Skip to the previous track")
	seekCmd   = app.Command("seek", "Seek within the current track")
	seekPos   = seekCmd.Arg("seconds", "Position in seconds").Required().String()

	// playlist commands
	playlistCmd = app.Command("playlist", "Show the playlist")
	addCmd      = app.Command("add", "Add a file to the playlist")
	addFile     = addCmd.Arg("file", "File to add").Required().String()
	removeCmd   = app.Command("remove", "Remove a playlist entry")
	removeIdx   = removeCmd.Arg("index", "Playlist index").Required().String()
	flushCmd    = app.Command("flush", "Empty the playlist")

	// browsing and config commands
	browseCmd  = app.Command("browse", "List a directory on the server")
	browsePath = browseCmd.Arg("path", "Directory relative to the module root").String()
	configCmd  = app.Command("config", "Show the server configuration")
	saveCmd    = app.Command("save", "Persist the configuration file")
	reloadCmd  = app.Command("reload", "Reload the configuration file")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Execute command
	switch command {
	case statusCmd.FullCommand():
		status()
	case playCmd.FullCommand():
		play(*playFile)
	case pauseCmd.FullCommand():
		call(http.MethodPut, "/files/pause")
		fmt.Println("Toggled pause")
	case stopCmd.FullCommand():
		call(http.MethodPut, "/files/stop")
		fmt.Println("Stopped")
	case nextCmd.FullCommand():
		call(http.MethodPut, "/files/next")
		fmt.Println("Skipped forward")
	case prevCmd.FullCommand():
		call(http.MethodPut, "/files/prev")
		fmt.Println("Skipped back")
	case seekCmd.FullCommand():
		call(http.MethodPut, "/files/seek/"+*seekPos)
		fmt.Printf("Seeked to %ss\n", *seekPos)
	case playlistCmd.FullCommand():
		playlist()
	case addCmd.FullCommand():
		call(http.MethodPut, "/files/playlist/add/"+escapePath(*addFile))
		fmt.Printf("Added %s\n", *addFile)
	case removeCmd.FullCommand():
		call(http.MethodPut, "/files/playlist/remove/"+*removeIdx)
		fmt.Printf("Removed entry %s\n", *removeIdx)
	case flushCmd.FullCommand():
		call(http.MethodPut, "/files/playlist/flush")
		fmt.Println("Playlist flushed")
	case browseCmd.FullCommand():
		browse(*browsePath)
	case configCmd.FullCommand():
		showConfig()
	case saveCmd.FullCommand():
		call(http.MethodPut, "/config/save")
		fmt.Println("Configuration saved")
	case reloadCmd.FullCommand():
		call(http.MethodPut, "/config/reload")
		fmt.Println("Configuration reloaded")
	}
}

// call performs a request against the server and returns the body.
// Any failure is printed and exits; error bodies are plain text.
func call(method, path string) []byte {
	req, err := http.NewRequest(method, *server+path, nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		fmt.Printf("Error: %s\n", msg)
		os.Exit(1)
	}
	return body
}

func mustDecode(data []byte, v any) {
	if err := json.Unmarshal(data, v); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func status() {
	var doc map[string]any
	mustDecode(call(http.MethodGet, "/files/status"), &doc)

	if doc["file"] == nil {
		fmt.Println("⏹  Stopped")
		return
	}
	fmt.Printf("▶️  %s (%ds / %ds)\n", describe(doc), seconds(doc["pos"]), seconds(doc["length"]))
}

func play(file string) {
	target := "/files/play"
	if file != "" {
		target += "/" + escapePath(file)
	}
	call(http.MethodPut, target)
	fmt.Println("Playing")
}

func playlist() {
	var entries []map[string]any
	mustDecode(call(http.MethodGet, "/files/playlist"), &entries)

	if len(entries) == 0 {
		fmt.Println("Playlist is empty")
		return
	}
	for i, e := range entries {
		fmt.Printf("  %d: %s\n", i, describe(e))
	}
}

func browse(path string) {
	target := "/files/list"
	if path != "" {
		target += "/" + escapePath(path)
	}

	var doc struct {
		Directory []string         `json:"directory"`
		File      []map[string]any `json:"file"`
	}
	mustDecode(call(http.MethodGet, target), &doc)

	for _, d := range doc.Directory {
		fmt.Printf("  %s/\n", d)
	}
	for _, f := range doc.File {
		name, _ := f["file"].(string)
		fmt.Printf("  %s\n", name)
	}
}

func showConfig() {
	var doc map[string]any
	mustDecode(call(http.MethodGet, "/config"), &doc)

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// describe renders a track object for humans: tagged tracks get
// "artist - title", the rest fall back to the file name.
func describe(doc map[string]any) string {
	title, _ := doc["title"].(string)
	artist, _ := doc["artist"].(string)
	if title != "" && artist != "" {
		return artist + " - " + title
	}
	if title != "" {
		return title
	}
	file, _ := doc["file"].(string)
	return file
}

func seconds(v any) int {
	f, _ := v.(float64)
	return int(f)
}

// escapePath escapes each segment of a server-relative path while
// keeping the separators.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
