package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ZacxDev/shorts-composer/internal/config"
	"github.com/ZacxDev/shorts-composer/internal/ffmpeg"
	"github.com/ZacxDev/shorts-composer/pkg/composer"
	"github.com/ZacxDev/shorts-composer/pkg/types"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "shorts-composer",
		Short: "A timeline composer for short vertical videos",
		Long: `shorts-composer renders short vertical videos (1080x1920 @ 30fps) from a
content directory of images, b-roll clips, narration audio, and captions.
It reconciles all asset durations into a single deterministic timeline
before any rendering begins.

Examples:
  # Render a video from a content directory with a 2-second leading intro
  shorts-composer render -c ./content -o out.mp4 --intro-frames 60

  # Render with the intro overlaid on the whole video
  shorts-composer render -c ./content -o out.mp4 --overlay

  # Compute and pin the timeline without rendering
  shorts-composer plan -c ./content -o plan.yaml

  # Re-render from a pinned plan, skipping all probing
  shorts-composer render --plan plan.yaml -o out.mp4`,
	}

	renderCmd = &cobra.Command{
		Use:   "render",
		Short: "Render a composed video",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := optionsFromFlags(cmd)
			if err != nil {
				return err
			}

			outputPath, _ := cmd.Flags().GetString("output")
			planPath, _ := cmd.Flags().GetString("plan")
			opts.OutputPath = outputPath

			if opts.OutputPath == "" {
				return fmt.Errorf("output path is required")
			}

			ctx := context.Background()

			if planPath != "" {
				renderPlan, err := composer.ReadPlan(planPath)
				if err != nil {
					return err
				}
				out, err := composer.Render(ctx, renderPlan, opts)
				if err != nil {
					return err
				}
				fmt.Printf("Rendered %s\n", out)
				return nil
			}

			if opts.ContentDir == "" && len(opts.Images) == 0 && len(opts.Videos) == 0 {
				return fmt.Errorf("either a content directory, explicit assets, or a plan file is required")
			}

			out, err := composer.Compose(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Printf("Rendered %s\n", out)
			return nil
		},
	}

	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Compute and pin the render plan without rendering",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := optionsFromFlags(cmd)
			if err != nil {
				return err
			}

			outputPath, _ := cmd.Flags().GetString("output")
			if outputPath == "" {
				return fmt.Errorf("output path is required")
			}

			renderPlan, err := composer.Plan(context.Background(), opts)
			if err != nil {
				return err
			}
			if err := composer.WritePlan(renderPlan, outputPath); err != nil {
				return err
			}

			fmt.Printf("Plan written to %s (%d frames, %s mode)\n",
				outputPath, renderPlan.TotalFrames, renderPlan.Mode)
			return nil
		},
	}

	probeCmd = &cobra.Command{
		Use:   "probe [file]",
		Short: "Print a media file's duration in seconds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			seconds, err := ffmpeg.NewProber(verbose).ProbeDuration(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%.3f\n", seconds)
			return nil
		},
	}
)

// optionsFromFlags collects the shared compose flags, applying a manifest
// file first so command-line values keep the last word.
func optionsFromFlags(cmd *cobra.Command) (*composer.Options, error) {
	opts := &composer.Options{}

	manifestPath, _ := cmd.Flags().GetString("manifest")
	if manifestPath != "" {
		manifest, err := config.LoadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
		manifest.Apply(opts)
	}

	contentDir, _ := cmd.Flags().GetString("content-dir")
	audioPath, _ := cmd.Flags().GetString("audio")
	introPath, _ := cmd.Flags().GetString("intro")
	introFrames, _ := cmd.Flags().GetInt("intro-frames")
	imageFrames, _ := cmd.Flags().GetInt("image-frames")
	overlay, _ := cmd.Flags().GetBool("overlay")
	outputFormat, _ := cmd.Flags().GetString("format")
	verbose, _ := cmd.Flags().GetBool("verbose")

	opts.ContentDir = contentDir
	opts.OutputFormat = outputFormat
	opts.Verbose = verbose

	if audioPath != "" {
		opts.AudioPath = audioPath
	}
	if introPath != "" {
		opts.IntroPath = introPath
	}
	if cmd.Flags().Changed("intro-frames") {
		opts.IntroFrames = introFrames
	}
	if cmd.Flags().Changed("image-frames") {
		opts.ImageFrames = imageFrames
	}
	if overlay {
		opts.Mode = types.ModeOverlay
	} else if opts.Mode == "" {
		opts.Mode = types.ModeSequential
	}

	return opts, nil
}

func addComposeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("content-dir", "c", "", "Content directory to resolve assets from")
	cmd.Flags().StringP("manifest", "m", "", "YAML manifest of pinned inputs")
	cmd.Flags().String("audio", "", "Narration audio file (overrides directory resolution)")
	cmd.Flags().String("intro", "", "Intro visual (overrides directory resolution)")
	cmd.Flags().Int("intro-frames", 0, "Leading intro length in frames (sequential mode)")
	cmd.Flags().Int("image-frames", config.DefaultImageFrames, "Display time per image in frames")
	cmd.Flags().Bool("overlay", false, "Overlay the intro on the whole video instead of playing it first")
	cmd.Flags().String("format", "mp4", "Output format (mp4 or webm)")
	cmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
}

func init() {
	addComposeFlags(renderCmd)
	renderCmd.Flags().StringP("output", "o", "", "Output video path")
	renderCmd.Flags().String("plan", "", "Render from a pinned plan file instead of computing one")
	renderCmd.MarkFlagRequired("output")

	addComposeFlags(planCmd)
	planCmd.Flags().StringP("output", "o", "", "Output plan path")
	planCmd.MarkFlagRequired("output")

	probeCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(probeCmd)
}

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
