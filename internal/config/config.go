package config

import (
	"os"

	"github.com/ZacxDev/shorts-composer/pkg/types"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// Output resolution (portrait, shorts/reels format)
	OutputWidth  = 1080
	OutputHeight = 1920

	// Frame rate shared by all duration arithmetic
	FPS = 30

	// Default display time per still image
	DefaultImageFrames = 90

	// Temporary directory prefix for render workspaces
	TempDirPrefix = "shorts_composer_"

	// Caption drawtext settings
	CaptionFontSize    = "56"
	CaptionMarginV     = "260" // distance from bottom edge
	CaptionColor       = "white"
	CaptionBorderColor = "black"
	CaptionBorderWidth = "3"
)

// ComposeOptions defines options for a single render invocation.
type ComposeOptions struct {
	ContentDir string
	OutputPath string

	// Explicit assets; non-empty values win over directory resolution.
	Images []string
	Videos []string
	// VideoFrames pins per-video lengths (frames). Any positive value
	// makes the whole array trusted and skips probing.
	VideoFrames []int
	AudioPath   string
	IntroPath   string
	Captions    []types.CaptionEntry

	Mode        types.Mode
	IntroFrames int
	ImageFrames int

	OutputFormat string // "mp4" or "webm"
	Verbose      bool
}

// Manifest is the on-disk YAML form of pinned compose inputs. Explicit
// values here freeze asset lists for repeatable re-renders.
type Manifest struct {
	Images      []string             `yaml:"images"`
	Videos      []string             `yaml:"videos"`
	VideoFrames []int                `yaml:"video_frames"`
	Audio       string               `yaml:"audio"`
	Intro       string               `yaml:"intro"`
	Mode        types.Mode           `yaml:"mode"`
	IntroFrames int                  `yaml:"intro_frames"`
	ImageFrames int                  `yaml:"image_frames"`
	Captions    []types.CaptionEntry `yaml:"captions"`
}

// LoadManifest reads a YAML manifest of pinned inputs.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read manifest")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest")
	}
	return &m, nil
}

// Apply copies manifest values onto options, manifest values winning only
// where set.
func (m *Manifest) Apply(opts *ComposeOptions) {
	if len(m.Images) > 0 {
		opts.Images = m.Images
	}
	if len(m.Videos) > 0 {
		opts.Videos = m.Videos
	}
	if len(m.VideoFrames) > 0 {
		opts.VideoFrames = m.VideoFrames
	}
	if m.Audio != "" {
		opts.AudioPath = m.Audio
	}
	if m.Intro != "" {
		opts.IntroPath = m.Intro
	}
	if m.Mode != "" {
		opts.Mode = m.Mode
	}
	if m.IntroFrames > 0 {
		opts.IntroFrames = m.IntroFrames
	}
	if m.ImageFrames > 0 {
		opts.ImageFrames = m.ImageFrames
	}
	if len(m.Captions) > 0 {
		opts.Captions = m.Captions
	}
}
