// Package captions loads caption entries from their JSON source. Captions
// are cosmetic: any fetch or parse failure degrades to an empty list and
// never blocks video generation.
package captions

import (
	"encoding/json"
	"log"
	"os"

	"github.com/ZacxDev/shorts-composer/internal/assets"
	"github.com/ZacxDev/shorts-composer/pkg/types"
	"github.com/pkg/errors"
)

// Parse decodes a caption document: a JSON array of
// {text, startSeconds, endSeconds} entries.
func Parse(data []byte) ([]types.CaptionEntry, error) {
	var entries []types.CaptionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "failed to parse caption document")
	}
	return entries, nil
}

// ParseFile reads and decodes a caption file.
func ParseFile(path string) ([]types.CaptionEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read caption file")
	}
	return Parse(data)
}

// LoadForAudio locates the caption file matching an audio file and parses
// it. It never fails: a missing or unparsable caption source is logged and
// returned as an empty list.
func LoadForAudio(audioPath, dir string) []types.CaptionEntry {
	path := assets.CaptionFileFor(audioPath, dir)
	if path == "" {
		return nil
	}

	entries, err := ParseFile(path)
	if err != nil {
		log.Printf("Warning: ignoring caption file %s: %v", path, err)
		return nil
	}
	return entries
}
