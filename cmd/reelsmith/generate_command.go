package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/pipeline"
	"reelsmith/internal/preflight"
	"reelsmith/internal/runstore"
	"reelsmith/internal/textutil"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var opts pipeline.Options
	var scriptPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write, narrate, illustrate and render a video for a topic",
		Example: `  reelsmith generate --topic "tidal pools" --goal "calm explainer"
  reelsmith generate --topic "bridges" --script ./bridges.yaml --clean-on-failure`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(opts.Topic) == "" {
				return fmt.Errorf("--topic is required")
			}
			if strings.TrimSpace(opts.VideoID) != "" {
				opts.VideoID = textutil.SanitizeToken(opts.VideoID)
			}
			if err := preflight.RequireReady(cfg); err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *runstore.Store) error {
				p, err := pipeline.NewFromConfig(cfg, store, logger, pipeline.BuildOptions{ScriptPath: scriptPath})
				if err != nil {
					return err
				}
				res, err := p.Generate(cmd.Context(), opts)
				if err != nil {
					if res.VideoID != "" {
						return fmt.Errorf("run %s: %w", res.VideoID, err)
					}
					return err
				}
				return printRunResult(cmd, ctx, res)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Topic, "topic", "", "Video topic")
	cmd.Flags().StringVar(&opts.Goal, "goal", "", "What the video should achieve (tone, audience)")
	cmd.Flags().StringVar(&scriptPath, "script", "", "Use a YAML or JSON script instead of generating one")
	cmd.Flags().IntVar(&opts.Paragraphs, "paragraphs", 0, "Paragraph count (defaults to script.max_paragraphs)")
	cmd.Flags().StringVar(&opts.VideoID, "id", "", "Run id, lowercased to a filesystem-safe token (defaults to a random 12 character id)")
	cmd.Flags().BoolVar(&opts.CleanOnFailure, "clean-on-failure", false, "Delete the run directory when the run fails")
	return cmd
}

func printRunResult(cmd *cobra.Command, ctx *commandContext, res pipeline.Result) error {
	if ctx.JSONMode() {
		return writeJSON(cmd, map[string]any{
			"video_id":   res.VideoID,
			"dir":        res.Dir,
			"output":     res.Output,
			"parts":      res.Schedule.Parts(),
			"selections": res.Selections,
			"alignment":  res.Alignment,
			"skipped":    paragraphNumbers(res.Skipped),
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Video ID:   %s\n", res.VideoID)
	fmt.Fprintf(out, "Output:     %s\n", res.Output)
	fmt.Fprintf(out, "Paragraphs: %d planned", res.Schedule.Len())
	if len(res.Skipped) > 0 {
		fmt.Fprintf(out, ", skipped %s", joinInts(paragraphNumbers(res.Skipped)))
	}
	fmt.Fprintln(out)
	printAlignment(out, res)
	return nil
}

func printAlignment(out io.Writer, res pipeline.Result) {
	a := res.Alignment
	fmt.Fprintf(out, "Duration:   %s (video %s, narration %s)\n",
		formatSeconds(a.TotalSeconds()), formatSeconds(a.VideoSeconds), formatSeconds(a.AudioSeconds))
	switch {
	case a.PadBefore > 0 || a.PadAfter > 0:
		fmt.Fprintf(out, "Padding:    video held %s at start and %s at end\n", formatSeconds(a.PadBefore), formatSeconds(a.PadAfter))
	case a.AudioPad > 0:
		fmt.Fprintf(out, "Padding:    %s of trailing silence\n", formatSeconds(a.AudioPad))
	}
}

func paragraphNumbers(indexes []int) []int {
	out := make([]int, len(indexes))
	for i, idx := range indexes {
		out[i] = idx + 1
	}
	return out
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
