package pipeline

import (
	"log/slog"
	"strings"
	"time"

	"reelsmith/internal/compose"
	"reelsmith/internal/config"
	"reelsmith/internal/deps"
	"reelsmith/internal/download"
	"reelsmith/internal/footage"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/narration"
	"reelsmith/internal/notifications"
	"reelsmith/internal/ranking"
	"reelsmith/internal/render"
	"reelsmith/internal/runstore"
	"reelsmith/internal/script"
	"reelsmith/internal/services"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/services/pexels"
)

// BuildOptions select optional adapters.
type BuildOptions struct {
	// ScriptPath loads a YAML or JSON script instead of generating one.
	ScriptPath string
	// RenderOnly skips the generation adapters and their credential checks.
	RenderOnly bool
}

// NewFromConfig wires the production adapters.
func NewFromConfig(cfg *config.Config, store *runstore.Store, logger *slog.Logger, opts BuildOptions) (*Pipeline, error) {
	orientation, err := footage.ParseOrientation(cfg.Media.Orientation)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "orientation", "", err)
	}
	frame := orientation.FrameSize()
	probe := ffprobe.New(deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
	wired := Dependencies{
		Config:   cfg,
		Store:    store,
		Probe:    probe,
		Composer: compose.NewComposer(compose.SettingsFromConfig(cfg, frame), logger),
		Renderer: render.NewRenderer(render.SettingsFromConfig(cfg), probe, logger),
		Notifier: notifications.NewService(cfg.Notifications),
		Logger:   logger,
	}
	if opts.RenderOnly {
		return New(wired)
	}

	if strings.TrimSpace(cfg.Pexels.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "pexels", "api key missing (set pexels.api_key or PEXELS_API_KEY)", nil)
	}
	searcher, err := pexels.New(cfg.Pexels.APIKey, cfg.Pexels.BaseURL,
		time.Duration(cfg.Pexels.TimeoutSeconds)*time.Second, pexels.WithPerPage(cfg.Pexels.PerPage))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "pexels", "", err)
	}

	needsLLM := opts.ScriptPath == "" || cfg.Media.ImageCandidatesPerSlot > 1 || cfg.Media.VideoCandidatesPerSlot > 1 || cfg.Ranking.Similarity == "llm"
	llmSettings := cfg.GetLLM()
	if needsLLM && llmSettings.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "llm", "api key missing (set llm.api_key or OPENROUTER_API_KEY)", nil)
	}
	llmCfg := llm.Config{
		APIKey:         llmSettings.APIKey,
		BaseURL:        llmSettings.BaseURL,
		Model:          llmSettings.Model,
		Referer:        llmSettings.Referer,
		Title:          llmSettings.Title,
		TimeoutSeconds: llmSettings.TimeoutSeconds,
	}

	var source script.Source = script.FileSource{Path: opts.ScriptPath, Language: cfg.Script.Language}
	if opts.ScriptPath == "" {
		source = script.NewLLMSource(llm.NewClient(llmCfg, llm.WithTemperature(0.7)), cfg.Script, logger)
	}

	// The ranking engine owns judge retries.
	judge := ranking.NewLLMJudge(llm.NewClient(llmCfg, llm.WithRetryMaxAttempts(1)))
	var scorer ranking.Scorer
	switch cfg.Ranking.Similarity {
	case "llm":
		scorer = judge
	case "lexical":
		scorer = ranking.LexicalScorer{}
	}

	synth, err := narration.NewCommandSynthesizer(cfg.Narration.Command, time.Duration(cfg.Narration.TimeoutSeconds)*time.Second)
	if err != nil {
		return nil, err
	}
	wired.Source = source
	wired.Narrator = narration.NewNarrator(synth, cfg, logger)
	wired.Searcher = searcher
	wired.Judge = judge
	wired.Scorer = scorer
	wired.Fetcher = download.New(cfg.FFmpegBinary(), frame, cfg.Download.Concurrency,
		time.Duration(cfg.Download.TimeoutSeconds)*time.Second, logger)
	return New(wired)
}
