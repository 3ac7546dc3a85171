// Package assets resolves media files from a content directory. All
// listings are ordered lexicographically by path so repeated runs produce
// identical layouts, and a missing directory yields empty results rather
// than an error.
package assets

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
)

var (
	imageExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".bmp"}
	videoExtensions = []string{".mp4", ".webm", ".mkv", ".avi", ".mov"}
	audioExtensions = []string{".mp3", ".wav", ".m4a", ".aac", ".ogg", ".flac"}
)

// ListImages returns the ordered image paths under dir/images, falling back
// to dir itself when no images subdirectory exists.
func ListImages(dir string) []string {
	return listByExtension(dir, "images", imageExtensions)
}

// ListVideos returns the ordered video paths under dir/videos, falling back
// to dir itself when no videos subdirectory exists.
func ListVideos(dir string) []string {
	return listByExtension(dir, "videos", videoExtensions)
}

// FirstAudio returns the first audio file under dir/audio (or dir), or ""
// when none exists.
func FirstAudio(dir string) string {
	matches := listByExtension(dir, "audio", audioExtensions)
	if len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// CaptionFileFor returns the caption file paired with an audio file by
// naming convention: <audio base>.captions.json next to the audio, then
// captions.json in the content directory. Returns "" when neither exists.
func CaptionFileFor(audioPath, dir string) string {
	if audioPath != "" {
		base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
		sidecar := base + ".captions.json"
		if fileExists(sidecar) {
			return sidecar
		}
	}
	if dir != "" {
		shared := filepath.Join(dir, "captions.json")
		if fileExists(shared) {
			return shared
		}
	}
	return ""
}

// FindIntro returns an intro visual (image or clip) named intro.* in the
// content directory, or "" when none exists.
func FindIntro(dir string) string {
	if dir == "" {
		return ""
	}
	for _, ext := range append(append([]string{}, imageExtensions...), videoExtensions...) {
		candidate := filepath.Join(dir, "intro"+ext)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func listByExtension(dir, subdir string, extensions []string) []string {
	if dir == "" {
		return nil
	}

	scanDir := filepath.Join(dir, subdir)
	if info, err := os.Stat(scanDir); err != nil || !info.IsDir() {
		scanDir = dir
	}

	entries, err := os.ReadDir(scanDir)
	if err != nil {
		return nil
	}

	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		// intro.* is resolved separately and never part of the content
		// sequence.
		if strings.TrimSuffix(name, filepath.Ext(name)) == "intro" {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if slices.Contains(extensions, ext) {
			matches = append(matches, filepath.Join(scanDir, name))
		}
	}

	slices.Sort(matches)
	return matches
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
