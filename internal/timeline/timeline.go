// Package timeline flattens a RenderPlan into an ordered placement
// sequence. The builder performs no I/O and cannot fail at runtime; any
// inconsistency in the plan must be caught by the metadata calculator.
package timeline

import "github.com/ZacxDev/shorts-composer/pkg/types"

// Build produces the placement sequence for a plan in a single forward
// pass. Content placements are contiguous and non-overlapping by
// construction: a monotonically increasing cursor assigns each image and
// video its start frame in input order.
//
// The builder has exactly two modes, selected once from the plan and never
// re-evaluated mid-timeline: in sequential mode the intro occupies a leading
// exclusive segment and content starts after it; in overlay mode the intro
// spans the entire output and content starts at frame 0.
func Build(plan *types.RenderPlan) []types.Placement {
	placements := make([]types.Placement, 0, len(plan.Images)+len(plan.Videos)+3)

	cursor := 0
	if plan.Mode == types.ModeSequential {
		cursor = plan.IntroFrames
	}

	for _, image := range plan.Images {
		placements = append(placements, types.Placement{
			Layer:  types.LayerContent,
			Ref:    image,
			From:   cursor,
			Frames: plan.ImageFrames,
		})
		cursor += plan.ImageFrames
	}

	for i, video := range plan.Videos {
		placements = append(placements, types.Placement{
			Layer:  types.LayerContent,
			Ref:    video,
			From:   cursor,
			Frames: plan.VideoFrames[i],
		})
		cursor += plan.VideoFrames[i]
	}

	introFrames := plan.IntroFrames
	if plan.Mode == types.ModeOverlay {
		introFrames = plan.TotalFrames
	}
	placements = append(placements, types.Placement{
		Layer:  types.LayerOverlay,
		Ref:    plan.IntroPath,
		From:   0,
		Frames: introFrames,
	})

	if plan.AudioPath != "" {
		// One looping record spanning the whole output; looping is a
		// playback instruction, not multiple placements.
		placements = append(placements, types.Placement{
			Layer:  types.LayerAudio,
			Ref:    plan.AudioPath,
			From:   0,
			Frames: plan.TotalFrames,
			Loop:   true,
		})
	}

	if len(plan.Captions) > 0 {
		// Caption entries keep their own absolute start/end times; the
		// intro offset they need is mode-dependent and applied by the
		// renderer, never here.
		placements = append(placements, types.Placement{
			Layer:  types.LayerCaption,
			From:   0,
			Frames: plan.TotalFrames,
		})
	}

	return placements
}
