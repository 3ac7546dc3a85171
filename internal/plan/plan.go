// Package plan implements the duration-reconciliation core: a pure
// calculation from declared inputs to a fully resolved RenderPlan, performed
// once per render invocation before any rendering primitive runs.
package plan

import (
	"context"
	"log"

	"github.com/ZacxDev/shorts-composer/internal/assets"
	"github.com/ZacxDev/shorts-composer/internal/captions"
	"github.com/ZacxDev/shorts-composer/internal/config"
	"github.com/ZacxDev/shorts-composer/pkg/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DurationProber reports a media file's duration in seconds.
type DurationProber interface {
	ProbeDuration(path string) (float64, error)
}

// Inputs are the declared values for one calculation. Empty fields fall
// back to Asset Resolver lookups against ContentDir; non-empty values win
// and are used verbatim, which keeps pinned re-renders byte-identical.
type Inputs struct {
	ContentDir string

	Images []string
	Videos []string
	// VideoFrames pins per-video lengths in frames. If it contains at
	// least one positive value the whole array is trusted and probing is
	// skipped.
	VideoFrames []int

	AudioPath string
	IntroPath string
	Captions  []types.CaptionEntry

	Mode        types.Mode
	IntroFrames int
	ImageFrames int
}

// Calculator resolves declared inputs into a RenderPlan.
type Calculator struct {
	prober  DurationProber
	verbose bool
}

// NewCalculator creates a Calculator backed by the given duration prober.
func NewCalculator(prober DurationProber, verbose bool) *Calculator {
	return &Calculator{prober: prober, verbose: verbose}
}

// Calculate reconciles all declared inputs into an immutable RenderPlan.
// It fails only when declared videos and video frame counts are mismatched
// in length, or when a required media file (audio or an untrusted video)
// cannot be probed. Caption problems degrade to an empty caption list.
func (c *Calculator) Calculate(ctx context.Context, in Inputs) (*types.RenderPlan, error) {
	mode := in.Mode
	if mode == "" {
		mode = types.ModeSequential
	}
	if mode != types.ModeSequential && mode != types.ModeOverlay {
		return nil, errors.Errorf("unknown intro mode: %s", mode)
	}

	introFrames := in.IntroFrames
	if introFrames < 0 {
		return nil, errors.Errorf("negative intro length: %d frames", introFrames)
	}
	// The overlay intro has no segment of its own; its length is the
	// whole output, decided after reconciliation.
	if mode == types.ModeOverlay {
		introFrames = 0
	}

	imageFrames := in.ImageFrames
	if imageFrames <= 0 {
		imageFrames = config.DefaultImageFrames
	}

	// Precedence rule, evaluated once per field: explicit value wins,
	// otherwise resolve from the content directory.
	images := in.Images
	if len(images) == 0 {
		images = assets.ListImages(in.ContentDir)
	}
	videos := in.Videos
	if len(videos) == 0 {
		videos = assets.ListVideos(in.ContentDir)
	}
	audioPath := in.AudioPath
	if audioPath == "" {
		audioPath = assets.FirstAudio(in.ContentDir)
	}
	introPath := in.IntroPath
	if introPath == "" {
		introPath = assets.FindIntro(in.ContentDir)
	}

	trusted := trustedFrames(in.VideoFrames)
	if trusted && len(in.VideoFrames) != len(videos) {
		return nil, errors.Errorf(
			"videos and video frame counts are mismatched: %d videos, %d frame counts",
			len(videos), len(in.VideoFrames))
	}

	// Caption resolution runs in its own failure domain: it may neither
	// cancel nor block the duration probes.
	capCh := make(chan []types.CaptionEntry, 1)
	if len(in.Captions) > 0 {
		capCh <- in.Captions
	} else {
		go func() {
			capCh <- captions.LoadForAudio(audioPath, in.ContentDir)
		}()
	}

	videoFrames := make([]int, len(videos))
	videoSeconds := make([]float64, len(videos))
	var audioSeconds float64

	if trusted {
		copy(videoFrames, in.VideoFrames)
		for i, frames := range videoFrames {
			videoSeconds[i] = types.SecondsFromFrames(frames, config.FPS)
		}
		if c.verbose {
			log.Printf("Using %d pinned video durations, probing skipped", len(videoFrames))
		}
	}

	// Probes are independent and issued concurrently, but results are
	// reassembled by input index: the timeline cursor depends on input
	// order, not completion order.
	g, _ := errgroup.WithContext(ctx)

	if !trusted {
		for i, path := range videos {
			i, path := i, path
			g.Go(func() error {
				seconds, err := c.prober.ProbeDuration(path)
				if err != nil {
					return err
				}
				videoSeconds[i] = seconds
				videoFrames[i] = types.FramesFromSeconds(seconds, config.FPS)
				return nil
			})
		}
	}

	if audioPath != "" {
		path := audioPath
		g.Go(func() error {
			seconds, err := c.prober.ProbeDuration(path)
			if err != nil {
				return err
			}
			audioSeconds = seconds
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	totalVideoSeconds := 0.0
	for _, s := range videoSeconds {
		totalVideoSeconds += s
	}
	imagesSeconds := types.SecondsFromFrames(imageFrames, config.FPS) * float64(len(images))

	// In overlay mode the intro is not additive: it floats on top of the
	// whole duration instead of occupying its own segment.
	contentSeconds := imagesSeconds + totalVideoSeconds
	if mode == types.ModeSequential {
		contentSeconds += types.SecondsFromFrames(introFrames, config.FPS)
	}

	totalSeconds := contentSeconds
	if audioSeconds > totalSeconds {
		totalSeconds = audioSeconds
	}
	totalFrames := types.FramesFromSeconds(totalSeconds, config.FPS)

	if c.verbose {
		log.Printf("Reconciled timeline: audio=%.2fs content=%.2fs total=%d frames (%s mode)",
			audioSeconds, contentSeconds, totalFrames, mode)
	}

	return &types.RenderPlan{
		Images:       images,
		Videos:       videos,
		VideoFrames:  videoFrames,
		AudioPath:    audioPath,
		AudioSeconds: audioSeconds,
		Captions:     <-capCh,
		Mode:         mode,
		IntroFrames:  introFrames,
		IntroPath:    introPath,
		ImageFrames:  imageFrames,
		TotalFrames:  totalFrames,
		Width:        config.OutputWidth,
		Height:       config.OutputHeight,
		FPS:          config.FPS,
	}, nil
}

// trustedFrames reports whether a pinned frame array should be used
// verbatim: non-empty with at least one positive value.
func trustedFrames(frames []int) bool {
	for _, f := range frames {
		if f > 0 {
			return true
		}
	}
	return false
}
