package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/config"
	"reelsmith/internal/notifications"
	"reelsmith/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	var notify bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check binaries, directories and API credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var results []preflight.Result
			if offline {
				if err := preflight.RequireReady(cfg); err != nil {
					results = append(results, preflight.Result{Name: "Local checks", Detail: err.Error()})
				} else {
					results = append(results, preflight.Result{Name: "Local checks", Passed: true, Detail: "directories and binaries ok"})
				}
			} else {
				results = preflight.RunAll(cmd.Context(), cfg)
			}
			if notify {
				results = append(results, testNotification(cmd, cfg.Notifications))
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"config_path": ctx.configPath,
					"checks":      results,
				})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Config: %s\n\n", ctx.configPath)
			failed := renderStatusReport(out, groupResults(results), colorize)
			if failed > 0 {
				fmt.Fprintf(out, "\n%d required check(s) failed\n", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the Pexels and LLM network probes")
	cmd.Flags().BoolVar(&notify, "notify", false, "Send a test push to the configured ntfy topic")
	return cmd
}

func testNotification(cmd *cobra.Command, cfg config.Notifications) preflight.Result {
	result := preflight.Result{Name: "Notifications"}
	if strings.TrimSpace(cfg.NtfyTopic) == "" {
		result.Detail = "notifications.ntfy_topic not set"
		return result
	}
	if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
		result.Detail = err.Error()
		return result
	}
	result.Passed = true
	result.Detail = "Test push sent"
	return result
}

func groupResults(results []preflight.Result) []statusSection {
	directories := statusSection{Title: "Directories", Failure: statusError}
	binaries := statusSection{Title: "Binaries", Failure: statusError}
	services := statusSection{Title: "Services", Failure: statusWarn}
	for _, result := range results {
		switch {
		case strings.HasSuffix(result.Name, "directory"):
			directories.Results = append(directories.Results, result)
		case result.Name == "Pexels" || result.Name == "LLM" || result.Name == "Notifications":
			services.Results = append(services.Results, result)
		default:
			binaries.Results = append(binaries.Results, result)
		}
	}
	return []statusSection{directories, binaries, services}
}
