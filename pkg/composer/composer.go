// Package composer is the public entry point: it resolves declared inputs
// into a RenderPlan, flattens the plan into placements, and hands both to
// the renderer. The plan is computed once per invocation and immutable
// afterwards.
package composer

import (
	"context"
	"log"
	"os"

	"github.com/ZacxDev/shorts-composer/internal/config"
	"github.com/ZacxDev/shorts-composer/internal/ffmpeg"
	"github.com/ZacxDev/shorts-composer/internal/plan"
	"github.com/ZacxDev/shorts-composer/internal/renderer"
	"github.com/ZacxDev/shorts-composer/internal/timeline"
	"github.com/ZacxDev/shorts-composer/pkg/types"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Options re-exports the compose options type.
type Options = config.ComposeOptions

// Plan computes the RenderPlan for the given options without rendering.
func Plan(ctx context.Context, opts *Options) (*types.RenderPlan, error) {
	calc := plan.NewCalculator(ffmpeg.NewProber(opts.Verbose), opts.Verbose)
	return calc.Calculate(ctx, plan.Inputs{
		ContentDir:  opts.ContentDir,
		Images:      opts.Images,
		Videos:      opts.Videos,
		VideoFrames: opts.VideoFrames,
		AudioPath:   opts.AudioPath,
		IntroPath:   opts.IntroPath,
		Captions:    opts.Captions,
		Mode:        opts.Mode,
		IntroFrames: opts.IntroFrames,
		ImageFrames: opts.ImageFrames,
	})
}

// Compose runs the full pipeline and returns the output path.
func Compose(ctx context.Context, opts *Options) (string, error) {
	if opts.OutputPath == "" {
		return "", errors.New("output path is required")
	}

	renderPlan, err := Plan(ctx, opts)
	if err != nil {
		return "", err
	}
	return Render(ctx, renderPlan, opts)
}

// Render validates a precomputed plan and draws it. A zero-length plan is a
// configuration fault rejected here, before any renderer work.
func Render(ctx context.Context, renderPlan *types.RenderPlan, opts *Options) (string, error) {
	if renderPlan.TotalFrames <= 0 {
		return "", errors.New("degenerate plan: no audio and no visual content, total duration is zero")
	}
	if len(renderPlan.Videos) != len(renderPlan.VideoFrames) {
		return "", errors.Errorf("invalid plan: %d videos but %d frame counts",
			len(renderPlan.Videos), len(renderPlan.VideoFrames))
	}

	placements := timeline.Build(renderPlan)

	if opts.Verbose {
		for _, p := range placements {
			log.Printf("Placement %-8s [%6d, %6d) %s", p.Layer, p.From, p.End(), p.Ref)
		}
	}

	r := renderer.New(opts.OutputFormat, opts.Verbose)
	if err := r.Render(ctx, renderPlan, placements, opts.OutputPath); err != nil {
		return "", err
	}
	return opts.OutputPath, nil
}

// WritePlan saves a RenderPlan as YAML so later renders can reuse it
// verbatim, skipping all probing.
func WritePlan(renderPlan *types.RenderPlan, path string) error {
	data, err := yaml.Marshal(renderPlan)
	if err != nil {
		return errors.Wrap(err, "failed to marshal plan")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "failed to write plan")
}

// ReadPlan loads a previously saved RenderPlan.
func ReadPlan(path string) (*types.RenderPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read plan")
	}
	var renderPlan types.RenderPlan
	if err := yaml.Unmarshal(data, &renderPlan); err != nil {
		return nil, errors.Wrap(err, "failed to parse plan")
	}
	return &renderPlan, nil
}
