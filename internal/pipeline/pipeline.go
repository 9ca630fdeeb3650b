package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"reelsmith/internal/compose"
	"reelsmith/internal/config"
	"reelsmith/internal/download"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/plan"
	"reelsmith/internal/ranking"
	"reelsmith/internal/render"
	"reelsmith/internal/runstore"
	"reelsmith/internal/script"
	"reelsmith/internal/selection"
	"reelsmith/internal/services"
	"reelsmith/internal/timing"
	"reelsmith/internal/workspace"
)

// Narrator writes one paragraph's narration, trailing silence included.
type Narrator interface {
	Narrate(ctx context.Context, text, outPath string) error
}

// ClipComposer renders a paragraph timeline.
type ClipComposer interface {
	Compose(ctx context.Context, tl compose.Timeline, out string) error
}

// FinalRenderer muxes the paragraph clips and narration.
type FinalRenderer interface {
	Render(ctx context.Context, req render.Request) (render.Alignment, error)
}

// Dependencies are the collaborators of a Pipeline.
type Dependencies struct {
	Config   *config.Config
	Store    *runstore.Store
	Source   script.Source
	Narrator Narrator
	Probe    plan.DurationProbe
	Searcher selection.Searcher
	Judge    ranking.Judge
	// Scorer is optional.
	Scorer   ranking.Scorer
	Fetcher  download.Fetcher
	Composer ClipComposer
	Renderer FinalRenderer
	// Notifier is optional; nil disables pushes.
	Notifier notifications.Service
	Logger   *slog.Logger
	// Sleeper replaces ranking backoff sleeps (tests).
	Sleeper func(time.Duration)
}

// Options describe one generate invocation.
type Options struct {
	Topic          string
	Goal           string
	Paragraphs     int
	VideoID        string
	CleanOnFailure bool
}

// Result summarizes a finished run.
type Result struct {
	VideoID    string
	Title      string
	Dir        string
	Output     string
	Schedule   *plan.Schedule
	Selections []ParagraphSelections
	Alignment  render.Alignment
	// Skipped lists 0-based paragraphs left out of the final video.
	Skipped []int
}

// ParagraphSelections is the ranked outcome of one paragraph, as written to
// selections.json.
type ParagraphSelections struct {
	Paragraph  int                 `json:"paragraph"`
	Requested  int                 `json:"requested"`
	Selections []ranking.Selection `json:"selections"`
}

// Pipeline orchestrates the stages of a run.
type Pipeline struct {
	deps        Dependencies
	cfg         *config.Config
	constraints timing.Constraints
	selectOpts  selection.Options
	logger      *slog.Logger
}

// New validates the dependencies needed to compose and render. The generation
// collaborators are checked when Generate is called, so a render-only
// pipeline can be built without credentials.
func New(deps Dependencies) (*Pipeline, error) {
	if missing := missingDeps(map[string]bool{
		"config":   deps.Config != nil,
		"store":    deps.Store != nil,
		"probe":    deps.Probe != nil,
		"composer": deps.Composer != nil,
		"renderer": deps.Renderer != nil,
	}); missing != "" {
		return nil, fmt.Errorf("pipeline: missing dependencies: %s", missing)
	}
	selectOpts, err := selection.OptionsFromConfig(deps.Config.Media)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "media options", "", err)
	}
	return &Pipeline{
		deps:        deps,
		cfg:         deps.Config,
		constraints: timing.FromConfig(deps.Config.Timing),
		selectOpts:  selectOpts,
		logger:      logging.NewComponentLogger(deps.Logger, "pipeline"),
	}, nil
}

func missingDeps(present map[string]bool) string {
	var missing []string
	for name, ok := range present {
		if !ok {
			missing = append(missing, name)
		}
	}
	return strings.Join(slices.Sorted(slices.Values(missing)), ", ")
}

// Generate runs every stage for a new video.
func (p *Pipeline) Generate(ctx context.Context, opts Options) (res Result, err error) {
	if missing := missingDeps(map[string]bool{
		"source":   p.deps.Source != nil,
		"narrator": p.deps.Narrator != nil,
		"searcher": p.deps.Searcher != nil,
		"judge":    p.deps.Judge != nil,
		"fetcher":  p.deps.Fetcher != nil,
	}); missing != "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "pipeline", "generate", "missing dependencies: "+missing, nil)
	}
	topic := strings.TrimSpace(opts.Topic)
	if topic == "" {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "generate", "topic required", nil)
	}
	videoID := strings.TrimSpace(opts.VideoID)
	if videoID == "" {
		videoID = workspace.NewVideoID()
	}
	ws, err := workspace.New(p.cfg.Paths.WorkDir, videoID)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "workspace", "", err)
	}
	if err := ws.Lock(); err != nil {
		return Result{}, err
	}
	defer func() { _ = ws.Unlock() }()

	if _, err := p.deps.Store.CreateRun(ctx, videoID, topic, opts.Goal, ws.Dir); err != nil {
		return Result{}, err
	}
	ctx = services.WithRunID(ctx, videoID)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("topic", topic),
		logging.String("dir", ws.Dir),
	)

	res = Result{VideoID: videoID, Dir: ws.Dir}
	defer func() {
		if err != nil {
			p.fail(ctx, ws, notifications.Run{VideoID: videoID, Title: res.Title}, err, opts.CleanOnFailure)
		}
	}()

	paragraphs := opts.Paragraphs
	if paragraphs <= 0 || paragraphs > p.cfg.Script.MaxParagraphs {
		paragraphs = p.cfg.Script.MaxParagraphs
	}
	sc, err := p.scriptStage(ctx, ws, script.Request{Topic: topic, Goal: opts.Goal, Paragraphs: paragraphs})
	if err != nil {
		return res, err
	}
	res.Title = sc.Title
	narrations, err := p.narrationStage(ctx, ws, sc)
	if err != nil {
		return res, err
	}
	schedule, err := p.planStage(ctx, narrations)
	if err != nil {
		return res, err
	}
	res.Schedule = schedule
	results, err := p.selectStage(ctx, sc, schedule)
	if err != nil {
		return res, err
	}
	ranked, err := p.rankStage(ctx, ws, sc, results)
	if err != nil {
		return res, err
	}
	res.Selections = ranked.selections
	if err := p.downloadStage(ctx, ws, ranked.slots); err != nil {
		return res, err
	}
	return p.finish(ctx, ws, schedule, res)
}

// Render recomposes and renders an existing run from its recorded plans and
// the media present in its workspace.
func (p *Pipeline) Render(ctx context.Context, videoID string) (res Result, err error) {
	run, err := p.deps.Store.Get(ctx, videoID)
	if err != nil {
		return Result{}, err
	}
	if run == nil {
		return Result{}, services.Wrap(services.ErrNotFound, "pipeline", "render", "unknown run "+videoID, nil)
	}
	ws, err := workspace.Open(p.cfg.Paths.WorkDir, videoID)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "pipeline", "render", "", err)
	}
	if err := ws.Lock(); err != nil {
		return Result{}, err
	}
	defer func() { _ = ws.Unlock() }()

	ctx = services.WithRunID(ctx, videoID)
	var title string
	if sc, readErr := script.ReadJSON(ws.ScriptPath()); readErr == nil {
		title = sc.Title
	}
	defer func() {
		if err != nil {
			p.fail(ctx, ws, notifications.Run{VideoID: videoID, Title: title}, err, false)
		}
	}()
	logger := logging.WithContext(ctx, p.logger)
	if title != "" {
		logger = logger.With(logging.String("title", title))
	}
	logger.Info("re-rendering run",
		logging.String(logging.FieldEventType, "render_requested"),
		logging.String("dir", ws.Dir),
	)
	schedule, err := p.deps.Store.Plans(ctx, videoID)
	if err != nil {
		return Result{}, err
	}
	if schedule.Len() == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "render", "run has no recorded plans", plan.ErrNoUsablePlan)
	}
	return p.finish(ctx, ws, schedule, Result{VideoID: videoID, Title: title, Dir: ws.Dir, Schedule: schedule})
}

func (p *Pipeline) finish(ctx context.Context, ws *workspace.Workspace, schedule *plan.Schedule, res Result) (Result, error) {
	clips, audios, skipped, err := p.composeStage(ctx, ws, schedule)
	if err != nil {
		return res, err
	}
	res.Skipped = skipped
	align, err := p.renderStage(ctx, ws, clips, audios)
	if err != nil {
		return res, err
	}
	res.Alignment = align
	res.Output = ws.FinalPath()
	if err := p.deps.Store.Complete(ctx, res.VideoID, res.Output); err != nil {
		return res, err
	}
	logging.WithContext(ctx, p.logger).Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("output", res.Output),
		logging.Float64("duration_seconds", align.TotalSeconds()),
	)
	p.notify(ctx, func(n notifications.Service) error {
		return n.NotifyRunCompleted(ctx, notifications.Run{
			VideoID:  res.VideoID,
			Title:    res.Title,
			Output:   res.Output,
			Duration: time.Duration(align.TotalSeconds() * float64(time.Second)),
			Skipped:  len(res.Skipped),
		})
	})
	return res, nil
}

// notify delivers a push; failures are logged and never fail the run.
func (p *Pipeline) notify(ctx context.Context, send func(notifications.Service) error) {
	if p.deps.Notifier == nil {
		return
	}
	if err := send(p.deps.Notifier); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "notification failed", "notify_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "run outcome not pushed"),
		)
	}
}

func (p *Pipeline) fail(ctx context.Context, ws *workspace.Workspace, run notifications.Run, runErr error, clean bool) {
	logger := logging.WithContext(ctx, p.logger)
	videoID := run.VideoID
	// Recording the failure must survive a cancelled run context.
	persistCtx := context.WithoutCancel(ctx)
	message := fmt.Sprintf("%s: %s", services.FailureKind(runErr), runErr.Error())
	if err := p.deps.Store.Fail(persistCtx, videoID, message); err != nil && !errors.Is(err, runstore.ErrRunNotFound) {
		logger.Error("failed to persist run failure", logging.Error(err))
	}
	logging.ErrorWithContext(logger, "run failed", "run_failed",
		logging.Error(runErr),
		logging.String("failure_kind", services.FailureKind(runErr)),
		logging.String(logging.FieldErrorHint, "inspect "+ws.Dir+" and rerun with reelsmith render "+videoID),
	)
	p.notify(persistCtx, func(n notifications.Service) error {
		return n.NotifyRunFailed(persistCtx, run, runErr)
	})
	if !clean {
		return
	}
	if err := ws.Clear(); err != nil {
		logging.WarnWithContext(logger, "failed to clear run directory", "workspace_clear_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "partial run files remain on disk"),
		)
		return
	}
	logger.Info("run directory cleared", logging.String(logging.FieldEventType, "workspace_cleared"))
}
