package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelsmith/internal/deps"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/plan"
	"reelsmith/internal/timing"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var narrations []float64
	var audioPaths []string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview the clip allocation for narration lengths",
		Long: `Preview how many images and videos each paragraph receives and how long
each clip is shown. Pass narration lengths in seconds with --narration, or
narration audio files with --audio to have them probed with ffprobe.`,
		Example: "  reelsmith plan --narration 30 --narration 12.5",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(narrations) == 0 && len(audioPaths) == 0 {
				return errors.New("pass at least one --narration or --audio")
			}
			constraints := timing.FromConfig(cfg.Timing)

			var parts []plan.PartPlan
			for i, seconds := range narrations {
				if seconds <= 0 {
					return fmt.Errorf("narration %d: %s is not a positive duration", i+1, strconv.FormatFloat(seconds, 'f', -1, 64))
				}
				parts = append(parts, plan.Build(i, seconds, constraints))
			}
			if len(audioPaths) > 0 {
				probe := ffprobe.New(deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
				inputs := make([]plan.Narration, len(audioPaths))
				for i, path := range audioPaths {
					inputs[i] = plan.Narration{ParagraphIndex: len(narrations) + i, AudioPath: path}
				}
				schedule, err := plan.NewScheduler(probe, constraints, logging.NewNop()).Schedule(cmd.Context(), inputs)
				if err != nil {
					return err
				}
				parts = append(parts, schedule.Parts()...)
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"crossfade_seconds": constraints.CrossfadeSeconds,
					"silence_seconds":   constraints.SilenceSeconds,
					"parts":             parts,
				})
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(parts))
			for _, part := range parts {
				rows = append(rows, []string{
					strconv.Itoa(part.ParagraphIndex + 1),
					formatSeconds(part.NarrationSeconds),
					formatSeconds(part.SequenceSeconds),
					strconv.Itoa(part.NumImages),
					formatSecondsList(part.ImageDurations),
					strconv.Itoa(part.NumVideos),
					formatSecondsList(part.VideoDurations),
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Paragraph", "Narration", "Sequence", "Images", "Image clips", "Videos", "Video clips"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "\nCrossfade %s, trailing silence %s per paragraph\n",
				formatSeconds(constraints.CrossfadeSeconds), formatSeconds(constraints.SilenceSeconds))
			return nil
		},
	}

	cmd.Flags().Float64SliceVar(&narrations, "narration", nil, "Narration length in seconds (repeatable)")
	cmd.Flags().StringArrayVar(&audioPaths, "audio", nil, "Narration audio file to probe (repeatable)")
	return cmd
}
