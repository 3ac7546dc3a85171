package plan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/ZacxDev/shorts-composer/pkg/types"
)

// stubProber serves canned durations and records every probe. Probes run
// concurrently, so the record is guarded.
type stubProber struct {
	mu        sync.Mutex
	durations map[string]float64
	calls     []string
}

func (s *stubProber) ProbeDuration(path string) (float64, error) {
	s.mu.Lock()
	s.calls = append(s.calls, path)
	s.mu.Unlock()

	d, ok := s.durations[path]
	if !ok {
		return 0, fmt.Errorf("unreadable media: %s", path)
	}
	return d, nil
}

func (s *stubProber) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestOverlayModeImagesOnly(t *testing.T) {
	calc := NewCalculator(&stubProber{}, false)

	p, err := calc.Calculate(context.Background(), Inputs{
		Images:      []string{"a.png", "b.png"},
		ImageFrames: 90,
		Mode:        types.ModeOverlay,
	})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if p.TotalFrames != 180 {
		t.Errorf("Expected 180 total frames, got %d", p.TotalFrames)
	}
	if p.Mode != types.ModeOverlay {
		t.Errorf("Expected overlay mode, got %s", p.Mode)
	}
	if p.IntroFrames != 0 {
		t.Errorf("Expected 0 intro frames in overlay mode, got %d", p.IntroFrames)
	}
	if p.Width != 1080 || p.Height != 1920 || p.FPS != 30 {
		t.Errorf("Expected 1080x1920 @ 30, got %dx%d @ %d", p.Width, p.Height, p.FPS)
	}
}

func TestSequentialIntroIsAdditive(t *testing.T) {
	calc := NewCalculator(&stubProber{}, false)

	p, err := calc.Calculate(context.Background(), Inputs{
		Images:      []string{"a.png", "b.png"},
		ImageFrames: 90,
		Mode:        types.ModeSequential,
		IntroFrames: 60,
	})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	// 60/30 intro + 2*90/30 images = 8s
	if p.TotalFrames != 240 {
		t.Errorf("Expected 240 total frames, got %d", p.TotalFrames)
	}
	if p.IntroFrames != 60 {
		t.Errorf("Expected 60 intro frames, got %d", p.IntroFrames)
	}
}

func TestPinnedDurationsSkipProbing(t *testing.T) {
	prober := &stubProber{}
	calc := NewCalculator(prober, false)

	p, err := calc.Calculate(context.Background(), Inputs{
		Videos:      []string{"v.mp4"},
		VideoFrames: []int{150},
		Mode:        types.ModeOverlay,
	})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if prober.callCount() != 0 {
		t.Errorf("Expected no probes with pinned durations, got %d", prober.callCount())
	}
	if !reflect.DeepEqual(p.VideoFrames, []int{150}) {
		t.Errorf("Expected pinned frames reused verbatim, got %v", p.VideoFrames)
	}
	if p.TotalFrames != 150 {
		t.Errorf("Expected 150 total frames, got %d", p.TotalFrames)
	}
}

func TestProbedDurationsKeepInputOrder(t *testing.T) {
	prober := &stubProber{durations: map[string]float64{
		"one.mp4":   1.0,
		"two.mp4":   2.5,
		"three.mp4": 0.4,
	}}
	calc := NewCalculator(prober, false)

	p, err := calc.Calculate(context.Background(), Inputs{
		Videos: []string{"one.mp4", "two.mp4", "three.mp4"},
		Mode:   types.ModeOverlay,
	})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	// ceil(seconds * 30) per video, in declared order regardless of probe
	// completion order.
	want := []int{30, 75, 12}
	if !reflect.DeepEqual(p.VideoFrames, want) {
		t.Errorf("Expected frames %v, got %v", want, p.VideoFrames)
	}
	if p.TotalFrames != 117 {
		t.Errorf("Expected 117 total frames, got %d", p.TotalFrames)
	}
}

func TestAudioIsNeverTruncated(t *testing.T) {
	prober := &stubProber{durations: map[string]float64{
		"voice.mp3": 10.0,
	}}
	calc := NewCalculator(prober, false)

	p, err := calc.Calculate(context.Background(), Inputs{
		Images:      []string{"a.png"},
		ImageFrames: 90,
		AudioPath:   "voice.mp3",
		Mode:        types.ModeOverlay,
	})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	audioFrames := types.FramesFromSeconds(p.AudioSeconds, p.FPS)
	if p.TotalFrames < audioFrames {
		t.Errorf("Total %d frames is shorter than audio %d frames", p.TotalFrames, audioFrames)
	}
	if p.TotalFrames != 300 {
		t.Errorf("Expected audio-driven total of 300 frames, got %d", p.TotalFrames)
	}
}

func TestFractionalDurationsRoundUp(t *testing.T) {
	prober := &stubProber{durations: map[string]float64{
		"clip.mp4": 1.01,
	}}
	calc := NewCalculator(prober, false)

	p, err := calc.Calculate(context.Background(), Inputs{
		Videos: []string{"clip.mp4"},
		Mode:   types.ModeOverlay,
	})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	// ceil(1.01 * 30) = 31; the clip must never be cut short.
	if p.VideoFrames[0] != 31 {
		t.Errorf("Expected 31 frames, got %d", p.VideoFrames[0])
	}
}

func TestMismatchedVideoFramesIsFault(t *testing.T) {
	calc := NewCalculator(&stubProber{}, false)

	_, err := calc.Calculate(context.Background(), Inputs{
		Videos:      []string{"a.mp4", "b.mp4"},
		VideoFrames: []int{150},
		Mode:        types.ModeOverlay,
	})
	if err == nil {
		t.Fatal("Expected validation fault for mismatched arrays, got nil")
	}
}

func TestUnreadableAudioPropagates(t *testing.T) {
	calc := NewCalculator(&stubProber{}, false)

	_, err := calc.Calculate(context.Background(), Inputs{
		Images:    []string{"a.png"},
		AudioPath: "missing.mp3",
		Mode:      types.ModeSequential,
	})
	if err == nil {
		t.Fatal("Expected probe error for unreachable audio, got nil")
	}
}

func TestCaptionFailureDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "captions.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	audioPath := filepath.Join(dir, "voice.mp3")

	prober := &stubProber{durations: map[string]float64{audioPath: 5.0}}
	calc := NewCalculator(prober, false)

	p, err := calc.Calculate(context.Background(), Inputs{
		ContentDir: dir,
		Images:     []string{"a.png"},
		AudioPath:  audioPath,
		Mode:       types.ModeSequential,
	})
	if err != nil {
		t.Fatalf("Calculate must not fail on a broken caption file: %v", err)
	}
	if len(p.Captions) != 0 {
		t.Errorf("Expected empty caption list, got %d entries", len(p.Captions))
	}
	if p.AudioSeconds != 5.0 {
		t.Errorf("Audio resolution must be unaffected by caption failure, got %.2fs", p.AudioSeconds)
	}
}

func TestExplicitCaptionsWin(t *testing.T) {
	calc := NewCalculator(&stubProber{}, false)

	entries := []types.CaptionEntry{{Text: "hello", StartSeconds: 0, EndSeconds: 1}}
	p, err := calc.Calculate(context.Background(), Inputs{
		Images:   []string{"a.png"},
		Captions: entries,
		Mode:     types.ModeSequential,
	})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if !reflect.DeepEqual(p.Captions, entries) {
		t.Errorf("Expected explicit captions verbatim, got %v", p.Captions)
	}
}

func TestIdempotentWithExplicitInputs(t *testing.T) {
	calc := NewCalculator(&stubProber{}, false)

	in := Inputs{
		Images:      []string{"a.png", "b.png"},
		Videos:      []string{"v.mp4"},
		VideoFrames: []int{45},
		ImageFrames: 60,
		Mode:        types.ModeSequential,
		IntroFrames: 30,
	}

	first, err := calc.Calculate(context.Background(), in)
	if err != nil {
		t.Fatalf("first Calculate failed: %v", err)
	}
	second, err := calc.Calculate(context.Background(), in)
	if err != nil {
		t.Fatalf("second Calculate failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Plans differ across identical invocations:\n%+v\n%+v", first, second)
	}
}

func TestImageFramesDefault(t *testing.T) {
	calc := NewCalculator(&stubProber{}, false)

	p, err := calc.Calculate(context.Background(), Inputs{
		Images: []string{"a.png"},
		Mode:   types.ModeOverlay,
	})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if p.ImageFrames != 90 {
		t.Errorf("Expected default of 90 frames per image, got %d", p.ImageFrames)
	}
}

func TestNegativeIntroIsFault(t *testing.T) {
	calc := NewCalculator(&stubProber{}, false)

	_, err := calc.Calculate(context.Background(), Inputs{
		Images:      []string{"a.png"},
		Mode:        types.ModeSequential,
		IntroFrames: -1,
	})
	if err == nil {
		t.Fatal("Expected fault for negative intro length, got nil")
	}
}

func TestEmptyInputsYieldZeroDuration(t *testing.T) {
	calc := NewCalculator(&stubProber{}, false)

	p, err := calc.Calculate(context.Background(), Inputs{Mode: types.ModeOverlay})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	// The degenerate plan itself is valid; rejecting it is the caller's
	// pre-flight responsibility.
	if p.TotalFrames != 0 {
		t.Errorf("Expected 0 total frames, got %d", p.TotalFrames)
	}
}
