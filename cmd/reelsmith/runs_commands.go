package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/runstore"
	"reelsmith/internal/textutil"
	"reelsmith/internal/workspace"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and prune the run ledger",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsPruneCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses, err := parseStatusFilters(statusFilters)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *runstore.Store) error {
				runs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return fmt.Errorf("list runs: %w", err)
				}
				if ctx.JSONMode() {
					if runs == nil {
						runs = []*runstore.Run{}
					}
					return writeJSON(cmd, runs)
				}

				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				sizes := runDirSizes(cfg.Paths.WorkDir)
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					detail := run.OutputPath
					if run.Status == runstore.StatusFailed {
						detail = run.ErrorMessage
					}
					rows = append(rows, []string{
						run.ID,
						string(run.Status),
						textutil.Truncate(run.Topic, 32),
						strconv.Itoa(run.Paragraphs),
						formatAge(run.UpdatedAt),
						formatBytes(sizes[run.ID]),
						textutil.Truncate(detail, 48),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Status", "Topic", "Paragraphs", "Updated", "Size", "Output / Error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				fmt.Fprintf(out, "\nTotal: %d runs\n", len(runs))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFilters, "status", "s", nil, "Only show runs in these statuses")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <video_id>",
		Short: "Show a run with its ranked selections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *runstore.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", args[0])
				}
				selections, err := store.Selections(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				schedule, err := store.Plans(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"run":        run,
						"parts":      schedule.Parts(),
						"selections": selections,
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:         %s\n", run.ID)
				fmt.Fprintf(out, "Topic:      %s\n", run.Topic)
				if run.Goal != "" {
					fmt.Fprintf(out, "Goal:       %s\n", run.Goal)
				}
				fmt.Fprintf(out, "Status:     %s\n", run.Status)
				fmt.Fprintf(out, "Directory:  %s\n", run.VideoDir)
				if run.OutputPath != "" {
					fmt.Fprintf(out, "Output:     %s\n", run.OutputPath)
				}
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:      %s\n", run.ErrorMessage)
				}
				fmt.Fprintf(out, "Created:    %s (%s)\n", run.CreatedAt.Local().Format(time.DateTime), formatAge(run.CreatedAt))
				fmt.Fprintf(out, "Plans:      %d paragraphs\n", schedule.Len())
				if len(selections) == 0 {
					return nil
				}

				rows := make([][]string, 0, len(selections))
				fallbacks := 0
				for _, sel := range selections {
					state := sel.State
					if sel.Fallback {
						state += " (fallback)"
						fallbacks++
					}
					rows = append(rows, []string{
						strconv.Itoa(sel.ParagraphIndex + 1),
						sel.SlotKey,
						state,
						strconv.Itoa(sel.Attempts),
						textutil.Truncate(sel.TargetDescription, 36),
						textutil.Truncate(sel.Description, 36),
					})
				}
				fmt.Fprintln(out)
				fmt.Fprint(out, renderTable(
					[]string{"Paragraph", "Slot", "State", "Attempts", "Wanted", "Chosen"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				fmt.Fprintf(out, "\n%d selections, %d fallbacks\n", len(selections), fallbacks)
				return nil
			})
		},
	}
}

func newRunsPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old run directories and their ledger entries",
		Long: `Delete run directories under work_dir whose last modification is older than
--older-than, together with their ledger rows. Runs currently locked by
another reelsmith process are left alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *runstore.Store) error {
				result := workspace.Prune(cmd.Context(), cfg.Paths.WorkDir, olderThan, logger)
				forgotten := 0
				for _, path := range result.Removed {
					err := store.Remove(cmd.Context(), filepath.Base(path))
					switch {
					case err == nil:
						forgotten++
					case errors.Is(err, runstore.ErrRunNotFound):
					default:
						result.Errors = append(result.Errors, workspace.PruneError{Path: path, Error: err})
					}
				}

				if ctx.JSONMode() {
					errs := make([]string, 0, len(result.Errors))
					for _, e := range result.Errors {
						errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
					}
					return writeJSON(cmd, map[string]any{
						"removed":   len(result.Removed),
						"forgotten": forgotten,
						"errors":    errs,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Removed %d run directories (%d ledger entries)\n", len(result.Removed), forgotten)
				for _, e := range result.Errors {
					fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Minimum age of runs to delete")
	return cmd
}

func parseStatusFilters(values []string) ([]runstore.Status, error) {
	var statuses []runstore.Status
	for _, value := range values {
		status, ok := runstore.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", strings.TrimSpace(value))
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func runDirSizes(workDir string) map[string]int64 {
	dirs, err := workspace.List(workDir)
	if err != nil {
		return nil
	}
	sizes := make(map[string]int64, len(dirs))
	for _, dir := range dirs {
		sizes[dir.VideoID] = dir.Size
	}
	return sizes
}
