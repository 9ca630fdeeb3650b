package main

import (
	"github.com/spf13/cobra"

	"reelsmith/internal/pipeline"
	"reelsmith/internal/runstore"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "render <video_id>",
		Short: "Recompose and re-render an existing run",
		Long: `Rebuild every paragraph segment and the final video of an existing run
from its recorded plans and the media already in its directory. Use it after
replacing or deleting clips by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *runstore.Store) error {
				p, err := pipeline.NewFromConfig(cfg, store, logger, pipeline.BuildOptions{RenderOnly: true})
				if err != nil {
					return err
				}
				res, err := p.Render(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printRunResult(cmd, ctx, res)
			})
		},
	}
}
