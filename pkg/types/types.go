package types

import "math"

// Mode selects how the intro component occupies the timeline.
type Mode string

const (
	// ModeSequential plays the intro as a leading clip before any content.
	ModeSequential Mode = "sequential"
	// ModeOverlay keeps the intro visual on top of the whole output while
	// content starts at frame 0.
	ModeOverlay Mode = "overlay"
)

// Layer identifies which compositing layer a placement belongs to.
type Layer string

const (
	LayerContent Layer = "content"
	LayerOverlay Layer = "overlay"
	LayerAudio   Layer = "audio"
	LayerCaption Layer = "caption"
)

// CaptionEntry is one caption span, anchored to absolute output time.
type CaptionEntry struct {
	Text         string  `json:"text" yaml:"text"`
	StartSeconds float64 `json:"startSeconds" yaml:"start_seconds"`
	EndSeconds   float64 `json:"endSeconds" yaml:"end_seconds"`
}

// RenderPlan is the fully reconciled configuration for one render. It is
// computed once, immutable afterwards, and is the sole input to layout —
// nothing downstream re-derives durations.
type RenderPlan struct {
	Images []string `yaml:"images"`

	// Videos and VideoFrames are 1:1 paired. Mismatched lengths are a
	// validation fault caught by the calculator, never checked here.
	Videos      []string `yaml:"videos"`
	VideoFrames []int    `yaml:"video_frames"`

	AudioPath    string  `yaml:"audio,omitempty"`
	AudioSeconds float64 `yaml:"audio_seconds"`

	Captions []CaptionEntry `yaml:"captions,omitempty"`

	Mode Mode `yaml:"mode"`
	// IntroFrames is the leading clip length; meaningful only in
	// sequential mode.
	IntroFrames int    `yaml:"intro_frames"`
	IntroPath   string `yaml:"intro,omitempty"`

	// ImageFrames is the uniform per-image frame count.
	ImageFrames int `yaml:"image_frames"`
	TotalFrames int `yaml:"total_frames"`

	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// Placement assigns one asset a start frame and length within a layer.
type Placement struct {
	Layer Layer
	Ref   string
	From  int
	// Frames is the placement length in frames.
	Frames int
	// Loop marks a playback instruction: the asset repeats to fill the
	// placement instead of being cut at its natural end.
	Loop bool
}

// End returns the first frame after the placement.
func (p Placement) End() int {
	return p.From + p.Frames
}

// FramesFromSeconds converts a duration in seconds to a frame count,
// rounding up so a clip is never truncated short of its real length.
func FramesFromSeconds(seconds float64, fps int) int {
	return int(math.Ceil(seconds * float64(fps)))
}

// SecondsFromFrames converts a frame count back to seconds.
func SecondsFromFrames(frames, fps int) float64 {
	return float64(frames) / float64(fps)
}
