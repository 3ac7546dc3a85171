package ffmpeg

import (
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ErrUnreadableMedia marks a file the probe could not open or that carries
// no duration information. Probe errors for required assets propagate to
// the caller unmodified; probing is idempotent so there is no retry.
var ErrUnreadableMedia = errors.New("unreadable media")

type CodecSettings struct {
	VideoCodec      string
	AudioCodec      string
	DefaultCRF      int
	ContainerFormat string
	FileExtension   string
	EncoderPresets  map[string]ffmpeg.KwArgs
}

var codecPresets = map[string]CodecSettings{
	"mp4": {
		VideoCodec:      "libx264",
		AudioCodec:      "aac",
		DefaultCRF:      20,
		ContainerFormat: "mp4",
		FileExtension:   ".mp4",
		EncoderPresets: map[string]ffmpeg.KwArgs{
			"balanced": {
				"preset":   "fast",
				"movflags": "+faststart",
			},
			"high_quality": {
				"preset":    "slower",
				"profile:v": "high",
				"level":     "4.2",
				"movflags":  "+faststart",
			},
		},
	},
	"webm": {
		VideoCodec:      "libvpx-vp9",
		AudioCodec:      "libopus",
		DefaultCRF:      24,
		ContainerFormat: "webm",
		FileExtension:   ".webm",
		EncoderPresets: map[string]ffmpeg.KwArgs{
			"balanced": {
				"cpu-used": 2,
				"row-mt":   1,
			},
		},
	},
}

func GetCodecSettings(outputFormat string) CodecSettings {
	if settings, ok := codecPresets[outputFormat]; ok {
		return settings
	}
	// Default to MP4 if format not specified or invalid
	return codecPresets["mp4"]
}

// MediaInfo contains probed metadata about a media file.
type MediaInfo struct {
	Duration float64
	Width    int
	Height   int
	Codec    string
	HasVideo bool
	HasAudio bool
}

// Prober wraps FFmpeg probing functionality.
type Prober struct {
	verbose bool
}

// NewProber creates a new FFmpeg prober.
func NewProber(verbose bool) *Prober {
	return &Prober{verbose: verbose}
}

// ProbeDuration returns a media file's duration in seconds. It works for
// both audio and video inputs and fails with ErrUnreadableMedia when the
// file cannot be opened or carries no duration track.
func (p *Prober) ProbeDuration(path string) (float64, error) {
	info, err := p.ProbeMedia(path)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

// ProbeMedia retrieves metadata about a media file.
func (p *Prober) ProbeMedia(path string) (*MediaInfo, error) {
	probe, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, errors.Wrapf(ErrUnreadableMedia, "probe %s: %v", path, err)
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(probe), &data); err != nil {
		return nil, errors.WithStack(err)
	}

	streams, ok := data["streams"].([]interface{})
	if !ok || len(streams) == 0 {
		return nil, errors.Wrapf(ErrUnreadableMedia, "no streams found in %s", path)
	}

	info := &MediaInfo{}
	var videoStream map[string]interface{}
	for _, stream := range streams {
		s, ok := stream.(map[string]interface{})
		if !ok {
			continue
		}
		switch s["codec_type"] {
		case "video":
			if videoStream == nil {
				videoStream = s
			}
			info.HasVideo = true
		case "audio":
			info.HasAudio = true
		}
	}

	// Duration lookup order: stream, format, nb_frames/frame_rate.
	if videoStream != nil {
		info.Duration = parseDurationField(videoStream["duration"])
		if w, ok := videoStream["width"].(float64); ok {
			info.Width = int(w)
		}
		if h, ok := videoStream["height"].(float64); ok {
			info.Height = int(h)
		}
		if c, ok := videoStream["codec_name"].(string); ok {
			info.Codec = c
		}
	}

	if info.Duration == 0 {
		if format, ok := data["format"].(map[string]interface{}); ok {
			info.Duration = parseDurationField(format["duration"])
		}
	}

	if info.Duration == 0 && videoStream != nil {
		info.Duration = durationFromFrames(videoStream)
	}

	if info.Duration == 0 {
		return nil, errors.Wrapf(ErrUnreadableMedia, "could not determine duration of %s", path)
	}

	return info, nil
}

func parseDurationField(v interface{}) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return d
}

// durationFromFrames reconstructs duration from the frame count and frame
// rate when neither the stream nor the container reports one.
func durationFromFrames(videoStream map[string]interface{}) float64 {
	nbFrames, ok := videoStream["nb_frames"].(string)
	if !ok {
		return 0
	}
	frames, err := strconv.ParseFloat(nbFrames, 64)
	if err != nil {
		return 0
	}

	rFrameRate, ok := videoStream["r_frame_rate"].(string)
	if !ok {
		return 0
	}
	nums := strings.Split(rFrameRate, "/")
	if len(nums) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(nums[0], 64)
	den, err2 := strconv.ParseFloat(nums[1], 64)
	if err1 != nil || err2 != nil || den == 0 || num == 0 {
		return 0
	}

	return frames / (num / den)
}

// GetOptimalThreadCount returns the encoder thread count, capped at 75% of
// available cores to prevent overload.
func GetOptimalThreadCount() int {
	cpuCount := runtime.NumCPU()
	return int(math.Max(1, float64(cpuCount)*0.75))
}

// EnsureExtension replaces any known video extension with the given one.
func EnsureExtension(filename, extension string) string {
	extensions := []string{".mp4", ".webm", ".mkv", ".avi", ".mov"}
	for _, ext := range extensions {
		filename = strings.TrimSuffix(filename, ext)
	}
	return filename + extension
}

// CreateConcatFilter creates a filter for concatenating multiple video streams.
func CreateConcatFilter(inputs []*ffmpeg.Stream, numStreams int) *ffmpeg.Stream {
	return ffmpeg.Filter(inputs, "concat", ffmpeg.Args{
		fmt.Sprintf("n=%d", numStreams),
		"v=1",
		"a=0",
	})
}

// CreateOverlayFilter creates a filter for overlaying one video on top of another.
func CreateOverlayFilter(main, overlay *ffmpeg.Stream, x, y string) *ffmpeg.Stream {
	return ffmpeg.Filter([]*ffmpeg.Stream{main, overlay}, "overlay", ffmpeg.Args{
		fmt.Sprintf("x=%s", x),
		fmt.Sprintf("y=%s", y),
	})
}
