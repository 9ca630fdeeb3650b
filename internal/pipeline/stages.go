package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reelsmith/internal/compose"
	"reelsmith/internal/download"
	"reelsmith/internal/footage"
	"reelsmith/internal/logging"
	"reelsmith/internal/plan"
	"reelsmith/internal/ranking"
	"reelsmith/internal/render"
	"reelsmith/internal/runstore"
	"reelsmith/internal/script"
	"reelsmith/internal/selection"
	"reelsmith/internal/services"
	"reelsmith/internal/workspace"
)

// runStage records the ledger transition and brackets fn with stage logs.
func (p *Pipeline) runStage(ctx context.Context, name string, status runstore.Status, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, p.logger)
	runID, _ := services.RunIDFromContext(ctx)

	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("status", string(status)),
	)
	if err := p.deps.Store.SetStatus(stageCtx, runID, status); err != nil {
		return fmt.Errorf("persist %s transition: %w", name, err)
	}
	started := time.Now()
	if err := fn(stageCtx); err != nil {
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Error(err),
		)
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (p *Pipeline) scriptStage(ctx context.Context, ws *workspace.Workspace, req script.Request) (*script.Script, error) {
	var sc *script.Script
	err := p.runStage(ctx, "script", runstore.StatusScripting, func(ctx context.Context) error {
		generated, err := p.deps.Source.Generate(ctx, req)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "script", "generate", "", err)
		}
		if err := generated.Validate(); err != nil {
			return services.Wrap(services.ErrValidation, "script", "validate", "", err)
		}
		if err := ws.Prepare(len(generated.Paragraphs)); err != nil {
			return err
		}
		if err := script.WriteJSON(ws.ScriptPath(), generated); err != nil {
			return err
		}
		for _, para := range generated.Paragraphs {
			if err := script.WriteJSON(ws.ParagraphScriptPath(para.Index), para); err != nil {
				return err
			}
		}
		runID, _ := services.RunIDFromContext(ctx)
		if err := p.deps.Store.SetParagraphs(ctx, runID, len(generated.Paragraphs)); err != nil {
			return err
		}
		logging.WithContext(ctx, p.logger).Info("script ready",
			logging.String(logging.FieldEventType, "script_ready"),
			logging.String("title", generated.Title),
			logging.Int("paragraphs", len(generated.Paragraphs)),
		)
		sc = generated
		return nil
	})
	return sc, err
}

func (p *Pipeline) narrationStage(ctx context.Context, ws *workspace.Workspace, sc *script.Script) ([]plan.Narration, error) {
	var narrations []plan.Narration
	err := p.runStage(ctx, "narration", runstore.StatusNarrating, func(ctx context.Context) error {
		for _, para := range sc.Paragraphs {
			paraCtx := services.WithParagraph(ctx, para.Number)
			out := ws.NarrationPath(para.Index)
			if err := p.deps.Narrator.Narrate(paraCtx, para.Text, out); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logging.WarnWithContext(logging.WithContext(paraCtx, p.logger), "narration failed", "narration_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the narration command"),
					logging.String(logging.FieldImpact, "paragraph left out of the video"),
				)
				continue
			}
			narrations = append(narrations, plan.Narration{ParagraphIndex: para.Index, AudioPath: out})
		}
		return nil
	})
	return narrations, err
}

func (p *Pipeline) planStage(ctx context.Context, narrations []plan.Narration) (*plan.Schedule, error) {
	var schedule *plan.Schedule
	err := p.runStage(ctx, "plan", runstore.StatusPlanning, func(ctx context.Context) error {
		s, err := plan.NewScheduler(p.deps.Probe, p.constraints, p.deps.Logger).Schedule(ctx, narrations)
		if err != nil {
			return err
		}
		runID, _ := services.RunIDFromContext(ctx)
		if err := p.deps.Store.SavePlans(ctx, runID, s.Parts()); err != nil {
			return err
		}
		schedule = s
		return nil
	})
	return schedule, err
}

func (p *Pipeline) selectStage(ctx context.Context, sc *script.Script, schedule *plan.Schedule) ([]selection.Result, error) {
	var results []selection.Result
	err := p.runStage(ctx, "select", runstore.StatusSelecting, func(ctx context.Context) error {
		selector := selection.New(p.deps.Searcher, footage.NewRegistry(), p.selectOpts, p.deps.Logger)
		parts := schedule.Parts()
		requests := make([]selection.Request, 0, len(parts))
		for _, part := range parts {
			requests = append(requests, selection.Request{
				ParagraphIndex: part.ParagraphIndex,
				Descriptions:   searchTerms(sc, part.ParagraphIndex),
				NumImages:      part.NumImages,
				NumVideos:      part.NumVideos,
			})
		}
		var err error
		results, err = selector.SelectAll(ctx, requests)
		return err
	})
	return results, err
}

// searchTerms returns the paragraph's descriptions, falling back to its tags
// and then the script topic.
func searchTerms(sc *script.Script, index int) []string {
	if index < 0 || index >= len(sc.Paragraphs) {
		return []string{sc.Topic}
	}
	para := sc.Paragraphs[index]
	switch {
	case len(para.ImageDescriptions) > 0:
		return para.ImageDescriptions
	case len(para.ImageTags) > 0:
		return para.ImageTags
	default:
		return []string{sc.Topic}
	}
}

type rankedRun struct {
	selections []ParagraphSelections
	slots      map[int][]footage.Slot
}

func (p *Pipeline) rankStage(ctx context.Context, ws *workspace.Workspace, sc *script.Script, results []selection.Result) (rankedRun, error) {
	ranked := rankedRun{slots: make(map[int][]footage.Slot, len(results))}
	err := p.runStage(ctx, "rank", runstore.StatusRanking, func(ctx context.Context) error {
		var opts []ranking.Option
		if p.deps.Scorer != nil {
			opts = append(opts, ranking.WithScorer(p.deps.Scorer))
		}
		if p.deps.Sleeper != nil {
			opts = append(opts, ranking.WithSleeper(p.deps.Sleeper))
		}
		engine := ranking.NewEngine(p.deps.Judge, ranking.PolicyFromConfig(p.cfg.Ranking),
			ranking.NewDescriptionCycle(sc.Descriptions()), p.deps.Logger, opts...)
		runID, _ := services.RunIDFromContext(ctx)

		for _, res := range results {
			voiceover := ""
			if res.ParagraphIndex < len(sc.Paragraphs) {
				voiceover = sc.Paragraphs[res.ParagraphIndex].Text
			}
			slots, sels, err := engine.RankParagraph(ctx, res.ParagraphIndex, voiceover, res.Slots)
			if err != nil {
				return err
			}
			if err := p.deps.Store.SaveSelections(ctx, runID, res.ParagraphIndex, sels); err != nil {
				return err
			}
			ranked.slots[res.ParagraphIndex] = slots
			ranked.selections = append(ranked.selections, ParagraphSelections{
				Paragraph:  res.ParagraphIndex + 1,
				Requested:  res.Requested,
				Selections: sels,
			})
		}
		return script.WriteJSON(ws.SelectionsPath(), ranked.selections)
	})
	return ranked, err
}

func (p *Pipeline) downloadStage(ctx context.Context, ws *workspace.Workspace, slots map[int][]footage.Slot) error {
	return p.runStage(ctx, "download", runstore.StatusDownloading, func(ctx context.Context) error {
		var jobs []download.Job
		for index, paragraphSlots := range slots {
			for _, slot := range paragraphSlots {
				if !slot.Filled() {
					continue
				}
				path, err := ws.SlotPath(index, slot.Key)
				if err != nil {
					return err
				}
				jobs = append(jobs, download.Job{
					ParagraphIndex: index,
					SlotKey:        slot.Key,
					Candidate:      *slot.Selected,
					Path:           path,
				})
			}
		}
		p.deps.Fetcher.FetchAll(ctx, jobs)
		return ctx.Err()
	})
}

func (p *Pipeline) composeStage(ctx context.Context, ws *workspace.Workspace, schedule *plan.Schedule) (clips, audios []string, skipped []int, err error) {
	err = p.runStage(ctx, "compose", runstore.StatusComposing, func(ctx context.Context) error {
		for _, part := range schedule.Parts() {
			paraCtx := services.WithParagraph(ctx, part.ParagraphIndex+1)
			logger := logging.WithContext(paraCtx, p.logger)
			tl := compose.BuildTimeline(paraCtx, part, ws.MediaFiles(part.ParagraphIndex), p.deps.Probe,
				p.cfg.Timing.CrossfadeSeconds, p.deps.Logger)
			out := ws.SegmentPath(part.ParagraphIndex)
			if err := p.deps.Composer.Compose(paraCtx, tl, out); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				hint := "check ffmpeg output in the log"
				if errors.Is(err, compose.ErrEmptyTimeline) {
					hint = "no media was found for this paragraph; try broader image descriptions"
				}
				logging.WarnWithContext(logger, "paragraph clip not composed", "compose_skipped",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, hint),
					logging.String(logging.FieldImpact, "paragraph left out of the video"),
				)
				skipped = append(skipped, part.ParagraphIndex)
				continue
			}
			logger.Info("paragraph clip composed",
				logging.String(logging.FieldEventType, "clip_composed"),
				logging.String("timeline", tl.String()),
			)
			clips = append(clips, out)
			audios = append(audios, ws.NarrationPath(part.ParagraphIndex))
		}
		return nil
	})
	return clips, audios, skipped, err
}

func (p *Pipeline) renderStage(ctx context.Context, ws *workspace.Workspace, clips, audios []string) (render.Alignment, error) {
	var align render.Alignment
	err := p.runStage(ctx, "render", runstore.StatusRendering, func(ctx context.Context) error {
		var err error
		align, err = p.deps.Renderer.Render(ctx, render.Request{
			Clips:  clips,
			Audios: audios,
			FPS:    p.cfg.Render.FPS,
			Output: ws.FinalPath(),
		})
		if errors.Is(err, render.ErrNothingToRender) {
			return services.Wrap(services.ErrValidation, "render", "final video", "no paragraph produced a clip", err)
		}
		return err
	})
	return align, err
}
