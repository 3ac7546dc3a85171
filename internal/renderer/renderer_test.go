package renderer

import (
	"testing"

	"github.com/ZacxDev/shorts-composer/pkg/types"
)

func TestCaptionOffsetShiftsOnlyInSequentialMode(t *testing.T) {
	sequential := &types.RenderPlan{Mode: types.ModeSequential, IntroFrames: 60}
	overlay := &types.RenderPlan{Mode: types.ModeOverlay, IntroFrames: 0}

	if got := CaptionOffsetFrames(sequential); got != 60 {
		t.Errorf("Expected sequential offset of 60 frames, got %d", got)
	}
	if got := CaptionOffsetFrames(overlay); got != 0 {
		t.Errorf("Expected overlay offset of 0 frames, got %d", got)
	}

	// The same caption entry renders 60 frames later in sequential mode than
	// in overlay mode.
	diff := CaptionOffsetFrames(sequential) - CaptionOffsetFrames(overlay)
	if diff != sequential.IntroFrames {
		t.Errorf("Expected the modes to differ by the intro length %d, got %d",
			sequential.IntroFrames, diff)
	}
}

func TestCaptionOffsetZeroLengthIntro(t *testing.T) {
	plan := &types.RenderPlan{Mode: types.ModeSequential, IntroFrames: 0}
	if got := CaptionOffsetFrames(plan); got != 0 {
		t.Errorf("Expected 0 offset for a zero-length intro, got %d", got)
	}
}

func TestIsImagePath(t *testing.T) {
	images := []string{"a.png", "B.JPG", "photo.jpeg", "art.webp", "x.bmp"}
	for _, p := range images {
		if !isImagePath(p) {
			t.Errorf("Expected %s to be an image", p)
		}
	}
	notImages := []string{"clip.mp4", "clip.mov", "voice.mp3", "plain"}
	for _, p := range notImages {
		if isImagePath(p) {
			t.Errorf("Expected %s not to be an image", p)
		}
	}
}

func TestEscapeDrawText(t *testing.T) {
	cases := map[string]string{
		"plain text":  "plain text",
		"it's fine":   "it'\\''s fine",
		"time: 10:30": "time\\: 10\\:30",
		`back\slash`:  `back\\slash`,
	}
	for in, want := range cases {
		if got := escapeDrawText(in); got != want {
			t.Errorf("escapeDrawText(%q) = %q, expected %q", in, got, want)
		}
	}
}
