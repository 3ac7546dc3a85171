// Package renderer draws a placement sequence into the output video with
// ffmpeg filter graphs: ken-burns image segments, trimmed or looped b-roll,
// the intro as a leading segment or full-length overlay, looped narration
// audio, and caption drawtext windows.
package renderer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZacxDev/shorts-composer/internal/config"
	ffmpegWrap "github.com/ZacxDev/shorts-composer/internal/ffmpeg"
	"github.com/ZacxDev/shorts-composer/pkg/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Ken-burns zoom ceiling for still images.
const kenBurnsZoom = 1.08

// Renderer assembles the final video from a RenderPlan and its placements.
type Renderer struct {
	prober       *ffmpegWrap.Prober
	outputFormat string
	verbose      bool
}

// New creates a Renderer producing the given output format ("mp4" or "webm").
func New(outputFormat string, verbose bool) *Renderer {
	return &Renderer{
		prober:       ffmpegWrap.NewProber(verbose),
		outputFormat: outputFormat,
		verbose:      verbose,
	}
}

// CaptionOffsetFrames returns the frame offset the renderer adds to every
// caption entry's start/end time.
//
// The offset is asymmetric across modes, and deliberately so: caption timing
// is authored relative to when narration content begins. In sequential mode
// content begins after the leading intro clip, so entries shift by the intro
// length; in overlay mode content begins at frame 0 and entries anchor to
// true elapsed time unshifted. Getting this wrong desyncs captions from
// narration in exactly one of the two modes.
func CaptionOffsetFrames(plan *types.RenderPlan) int {
	if plan.Mode == types.ModeSequential {
		return plan.IntroFrames
	}
	return 0
}

// Render draws every layer of the placement sequence and encodes the output.
func (r *Renderer) Render(ctx context.Context, plan *types.RenderPlan, placements []types.Placement, outputPath string) error {
	runID := uuid.NewString()[:8]
	tempDir, err := os.MkdirTemp("", config.TempDirPrefix+runID+"_")
	if err != nil {
		return errors.Wrap(err, "failed to create temp directory")
	}
	defer os.RemoveAll(tempDir)

	if r.verbose {
		log.Printf("Render %s: %d placements, %d frames into %s",
			runID, len(placements), plan.TotalFrames, outputPath)
	}

	segments, err := r.encodeSegments(ctx, plan, placements, tempDir)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return errors.New("no renderable segments in placement sequence")
	}

	video := r.concatSegments(segments)

	if plan.Mode == types.ModeOverlay && plan.IntroPath != "" {
		video = r.overlayIntro(video, plan)
	}

	if len(plan.Captions) > 0 {
		video = r.drawCaptions(video, plan)
	}

	return r.encodeOutput(video, plan, outputPath)
}

// encodeSegments renders each content placement (plus a leading intro
// segment in sequential mode and a trailing filler when narration outruns
// the visuals) into an intermediate clip of its exact frame length.
func (r *Renderer) encodeSegments(ctx context.Context, plan *types.RenderPlan, placements []types.Placement, tempDir string) ([]string, error) {
	var segments []string
	contentEnd := 0

	introSeg, err := r.encodeIntroSegment(plan, tempDir)
	if err != nil {
		return nil, err
	}
	if introSeg != "" {
		segments = append(segments, introSeg)
	}

	for i, p := range placements {
		if p.Layer != types.LayerContent {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		segPath := filepath.Join(tempDir, fmt.Sprintf("seg_%03d%s", i, r.extension()))
		if isImagePath(p.Ref) {
			err = r.encodeImageSegment(p.Ref, p.Frames, plan, segPath)
		} else {
			err = r.encodeVideoSegment(p.Ref, p.Frames, plan, segPath)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode segment for %s", p.Ref)
		}

		segments = append(segments, segPath)
		if p.End() > contentEnd {
			contentEnd = p.End()
		}

		if r.verbose {
			log.Printf("Segment ready: %s [%d, %d)", filepath.Base(segPath), p.From, p.End())
		}
	}

	if introSeg != "" && plan.IntroFrames > contentEnd {
		contentEnd = plan.IntroFrames
	}

	// Narration may outrun the visuals; the tail is filled with a black
	// background so the audio is never truncated.
	if contentEnd < plan.TotalFrames {
		fillerPath := filepath.Join(tempDir, "filler"+r.extension())
		if err := r.encodeFillerSegment(plan.TotalFrames-contentEnd, plan, fillerPath); err != nil {
			return nil, errors.Wrap(err, "failed to encode trailing filler")
		}
		segments = append(segments, fillerPath)
	}

	return segments, nil
}

// encodeIntroSegment renders the leading intro clip for sequential mode.
// Overlay-mode intros are composited later and have no segment of their own.
func (r *Renderer) encodeIntroSegment(plan *types.RenderPlan, tempDir string) (string, error) {
	if plan.Mode != types.ModeSequential || plan.IntroFrames == 0 {
		return "", nil
	}

	segPath := filepath.Join(tempDir, "intro"+r.extension())
	switch {
	case plan.IntroPath == "":
		// No intro visual supplied; hold a plain card for the intro slot.
		if err := r.encodeFillerSegment(plan.IntroFrames, plan, segPath); err != nil {
			return "", errors.Wrap(err, "failed to encode intro card")
		}
	case isImagePath(plan.IntroPath):
		if err := r.encodeImageSegment(plan.IntroPath, plan.IntroFrames, plan, segPath); err != nil {
			return "", errors.Wrap(err, "failed to encode intro image")
		}
	default:
		if err := r.encodeVideoSegment(plan.IntroPath, plan.IntroFrames, plan, segPath); err != nil {
			return "", errors.Wrap(err, "failed to encode intro clip")
		}
	}
	return segPath, nil
}

// encodeImageSegment renders a still image as a clip with a slow ken-burns
// zoom toward the center.
func (r *Renderer) encodeImageSegment(imagePath string, frames int, plan *types.RenderPlan, outPath string) error {
	zoomStep := (kenBurnsZoom - 1.0) / float64(frames)

	// Upscale before zoompan so the pan never samples below output
	// resolution.
	filter := fmt.Sprintf(
		"scale=%d:%d,zoompan=z='min(zoom+%.6f,%.3f)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d:fps=%d",
		plan.Width*2, plan.Height*2,
		zoomStep, kenBurnsZoom,
		frames,
		plan.Width, plan.Height,
		plan.FPS,
	)

	stream := ffmpeg.Input(imagePath, ffmpeg.KwArgs{
		"loop":      1,
		"framerate": plan.FPS,
	})

	outputKwargs := r.segmentOutputKwargs(plan)
	outputKwargs["vf"] = filter
	outputKwargs["frames:v"] = frames

	return runStream(stream.Output(outPath, outputKwargs), r.verbose)
}

// encodeVideoSegment trims or loops a clip to its placement length and
// normalizes it to the output geometry.
func (r *Renderer) encodeVideoSegment(videoPath string, frames int, plan *types.RenderPlan, outPath string) error {
	seconds := types.SecondsFromFrames(frames, plan.FPS)

	inputKwargs := ffmpeg.KwArgs{}
	clipSeconds, err := r.prober.ProbeDuration(videoPath)
	if err == nil && clipSeconds < seconds {
		loops := int(seconds/clipSeconds) + 1
		inputKwargs["stream_loop"] = loops
	}

	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,setsar=1,fps=%d",
		plan.Width, plan.Height,
		plan.Width, plan.Height,
		plan.FPS,
	)

	outputKwargs := r.segmentOutputKwargs(plan)
	outputKwargs["vf"] = filter
	outputKwargs["frames:v"] = frames

	return runStream(ffmpeg.Input(videoPath, inputKwargs).Output(outPath, outputKwargs), r.verbose)
}

// encodeFillerSegment renders a black clip of the given length.
func (r *Renderer) encodeFillerSegment(frames int, plan *types.RenderPlan, outPath string) error {
	seconds := types.SecondsFromFrames(frames, plan.FPS)

	stream := ffmpeg.Input(
		fmt.Sprintf("color=c=black:s=%dx%d:r=%d", plan.Width, plan.Height, plan.FPS),
		ffmpeg.KwArgs{"f": "lavfi", "t": fmt.Sprintf("%.3f", seconds)},
	)

	outputKwargs := r.segmentOutputKwargs(plan)
	outputKwargs["frames:v"] = frames

	return runStream(stream.Output(outPath, outputKwargs), r.verbose)
}

// concatSegments joins the encoded segments in timeline order.
func (r *Renderer) concatSegments(segments []string) *ffmpeg.Stream {
	if len(segments) == 1 {
		return ffmpeg.Input(segments[0])
	}
	streams := make([]*ffmpeg.Stream, len(segments))
	for i, path := range segments {
		streams[i] = ffmpeg.Input(path)
	}
	return ffmpegWrap.CreateConcatFilter(streams, len(streams))
}

// overlayIntro composites the overlay-mode intro visual on top of the whole
// video, scaled to the output width and pinned to the top edge.
func (r *Renderer) overlayIntro(video *ffmpeg.Stream, plan *types.RenderPlan) *ffmpeg.Stream {
	introKwargs := ffmpeg.KwArgs{}
	if isImagePath(plan.IntroPath) {
		introKwargs["loop"] = 1
		introKwargs["framerate"] = plan.FPS
	} else {
		introKwargs["stream_loop"] = -1
	}

	intro := ffmpeg.Input(plan.IntroPath, introKwargs).
		Filter("scale", ffmpeg.Args{fmt.Sprintf("%d:-2", plan.Width)})

	return ffmpegWrap.CreateOverlayFilter(video, intro, "0", "0")
}

// drawCaptions appends one drawtext filter per caption entry, each enabled
// only inside its display window. Entry times are shifted by the
// mode-dependent intro offset (see CaptionOffsetFrames).
func (r *Renderer) drawCaptions(video *ffmpeg.Stream, plan *types.RenderPlan) *ffmpeg.Stream {
	offset := types.SecondsFromFrames(CaptionOffsetFrames(plan), plan.FPS)

	for _, entry := range plan.Captions {
		drawTextFilter := fmt.Sprintf(
			"text='%s':"+
				"fontsize=%s:"+
				"fontcolor=%s:"+
				"bordercolor=%s:"+
				"borderw=%s:"+
				"x=(w-tw)/2:"+
				"y=h-th-%s:"+
				"shadowcolor=black:"+
				"shadowx=2:"+
				"shadowy=2:"+
				"box=1:"+
				"boxcolor=black@0.5:"+
				"boxborderw=8:"+
				"enable='between(t,%.3f,%.3f)'",
			escapeDrawText(entry.Text),
			config.CaptionFontSize,
			config.CaptionColor,
			config.CaptionBorderColor,
			config.CaptionBorderWidth,
			config.CaptionMarginV,
			entry.StartSeconds+offset,
			entry.EndSeconds+offset,
		)
		video = video.Filter("drawtext", ffmpeg.Args{drawTextFilter})
	}

	return video
}

// encodeOutput runs the final encode, attaching looped narration audio when
// the plan carries one.
func (r *Renderer) encodeOutput(video *ffmpeg.Stream, plan *types.RenderPlan, outputPath string) error {
	codecSettings := ffmpegWrap.GetCodecSettings(r.outputFormat)
	outputPath = ffmpegWrap.EnsureExtension(outputPath, codecSettings.FileExtension)

	totalSeconds := types.SecondsFromFrames(plan.TotalFrames, plan.FPS)

	outputKwargs := ffmpeg.KwArgs{
		"c:v":     codecSettings.VideoCodec,
		"crf":     codecSettings.DefaultCRF,
		"pix_fmt": "yuv420p",
		"r":       plan.FPS,
		"t":       fmt.Sprintf("%.3f", totalSeconds),
		"threads": ffmpegWrap.GetOptimalThreadCount(),
	}
	for k, v := range codecSettings.EncoderPresets["balanced"] {
		outputKwargs[k] = v
	}

	var output *ffmpeg.Stream
	if plan.AudioPath != "" {
		// Narration loops to fill the output and is cut by -t, never the
		// other way around.
		audio := ffmpeg.Input(plan.AudioPath, ffmpeg.KwArgs{"stream_loop": -1}).Audio()
		outputKwargs["c:a"] = codecSettings.AudioCodec
		outputKwargs["b:a"] = "192k"
		output = ffmpeg.Output([]*ffmpeg.Stream{video, audio}, outputPath, outputKwargs)
	} else {
		outputKwargs["an"] = ""
		output = video.Output(outputPath, outputKwargs)
	}

	if r.verbose {
		log.Printf("Final encode: %s (%.3fs)", outputPath, totalSeconds)
	}

	return errors.Wrap(runStream(output, r.verbose), "failed to encode final video")
}

// segmentOutputKwargs returns the shared encode settings for intermediate
// segments.
func (r *Renderer) segmentOutputKwargs(plan *types.RenderPlan) ffmpeg.KwArgs {
	codecSettings := ffmpegWrap.GetCodecSettings(r.outputFormat)
	kwargs := ffmpeg.KwArgs{
		"c:v":     codecSettings.VideoCodec,
		"crf":     codecSettings.DefaultCRF,
		"pix_fmt": "yuv420p",
		"r":       plan.FPS,
		"an":      "",
		"threads": ffmpegWrap.GetOptimalThreadCount(),
	}
	for k, v := range codecSettings.EncoderPresets["balanced"] {
		kwargs[k] = v
	}
	return kwargs
}

func (r *Renderer) extension() string {
	return ffmpegWrap.GetCodecSettings(r.outputFormat).FileExtension
}

func runStream(stream *ffmpeg.Stream, verbose bool) error {
	if verbose {
		log.Printf("FFmpeg command: %s", stream.String())
		return stream.OverWriteOutput().ErrorToStdOut().Run()
	}
	return stream.OverWriteOutput().Run()
}

func isImagePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".webp", ".bmp":
		return true
	}
	return false
}

func escapeDrawText(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "'", "'\\''")
	text = strings.ReplaceAll(text, ":", "\\:")
	return text
}
