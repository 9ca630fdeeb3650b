package preflight

import (
	"context"
	"fmt"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/deps"
	"reelsmith/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every preflight check for the given config, including the
// network probes against Pexels and the LLM endpoint.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := directoryChecks(cfg)
	results = append(results, binaryChecks(CheckSystemDeps(cfg))...)
	results = append(results, CheckPexels(ctx, cfg.Pexels))

	// Script generation and ranking share one endpoint.
	results = append(results, CheckLLM(ctx, "LLM", cfg.GetLLM()))
	return results
}

// RequireReady runs the local checks (directories and binaries) and returns a
// configuration error naming every failure. Network checks are left to the
// stages that use them so a flaky endpoint surfaces with its own context.
func RequireReady(cfg *config.Config) error {
	if cfg == nil {
		return services.Wrap(services.ErrConfiguration, "preflight", "require ready", "config missing", nil)
	}
	checks := append(directoryChecks(cfg), binaryChecks(CheckSystemDeps(cfg))...)
	var failed []string
	for _, check := range checks {
		if !check.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", check.Name, check.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "require ready", strings.Join(failed, "; "), nil)
}

func directoryChecks(cfg *config.Config) []Result {
	return []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
}

func binaryChecks(statuses []deps.Status) []Result {
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		result := Result{Name: status.Name, Passed: status.Available || status.Optional, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Command
		}
		results = append(results, result)
	}
	return results
}
