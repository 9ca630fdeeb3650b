package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"reelsmith/internal/compose"
	"reelsmith/internal/config"
	"reelsmith/internal/download"
	"reelsmith/internal/footage"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/plan"
	"reelsmith/internal/ranking"
	"reelsmith/internal/render"
	"reelsmith/internal/runstore"
	"reelsmith/internal/script"
	"reelsmith/internal/services"
	"reelsmith/internal/services/pexels"
)

type fakeSource struct{ paragraphs []string }

func (f fakeSource) Generate(_ context.Context, req script.Request) (*script.Script, error) {
	sc := &script.Script{Title: "Deep Sea", Topic: req.Topic, Goal: req.Goal}
	for i, text := range f.paragraphs {
		sc.Paragraphs = append(sc.Paragraphs, script.Paragraph{
			Text:              text,
			ImageDescriptions: []string{fmt.Sprintf("ocean scene %d", i), fmt.Sprintf("deep water %d", i)},
		})
	}
	sc.Normalize()
	return sc, nil
}

type fakeNarrator struct{ fail map[string]bool }

func (f fakeNarrator) Narrate(_ context.Context, text, out string) error {
	if f.fail[text] {
		return errors.New("tts crashed")
	}
	return os.WriteFile(out, []byte("wav"), 0o644)
}

// fakeProbe reports 30s for narration and 20s for any other media.
type fakeProbe struct{}

func (fakeProbe) Duration(_ context.Context, path string) (float64, error) {
	if filepath.Base(path) == "audio.wav" {
		return 30, nil
	}
	return 20, nil
}

type fakeSearcher struct{}

func (fakeSearcher) SearchPhotos(_ context.Context, query string, opts pexels.SearchOptions) ([]footage.Candidate, error) {
	return page(footage.KindImage, query, opts, 4000, 4000), nil
}

func (fakeSearcher) SearchVideos(_ context.Context, query string, opts pexels.SearchOptions) ([]footage.Candidate, error) {
	frame := opts.Orientation.FrameSize()
	return page(footage.KindVideo, query, opts, frame.Width, frame.Height), nil
}

func page(kind footage.Kind, query string, opts pexels.SearchOptions, w, h int) []footage.Candidate {
	out := make([]footage.Candidate, 0, 10)
	for i := range 10 {
		id := fmt.Sprintf("%s-%s-p%d-%d", kind, strings.ReplaceAll(query, " ", "-"), opts.Page, i)
		out = append(out, footage.Candidate{
			URL:         "https://media.example/" + id,
			Description: id,
			Width:       w,
			Height:      h,
			Quality:     "hd",
			Kind:        kind,
		})
	}
	return out
}

type fakeFetcher struct{}

func (fakeFetcher) FetchAll(_ context.Context, jobs []download.Job) []download.Result {
	results := make([]download.Result, len(jobs))
	for i, job := range jobs {
		results[i] = download.Result{Job: job, Err: os.WriteFile(job.Path, []byte(job.Candidate.URL), 0o644)}
	}
	return results
}

type fakeComposer struct {
	mu        sync.Mutex
	timelines []compose.Timeline
}

func (f *fakeComposer) Compose(_ context.Context, tl compose.Timeline, out string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timelines = append(f.timelines, tl)
	if tl.Len() == 0 {
		return compose.ErrEmptyTimeline
	}
	return os.WriteFile(out, []byte("clip"), 0o644)
}

type fakeRenderer struct {
	requests []render.Request
	err      error
}

func (f *fakeRenderer) Render(_ context.Context, req render.Request) (render.Alignment, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return render.Alignment{}, f.err
	}
	if len(req.Clips) == 0 {
		return render.Alignment{}, render.ErrNothingToRender
	}
	return render.Align(58, 64), nil
}

type fakeNotifier struct {
	completed []notifications.Run
	failed    []notifications.Run
	err       error
}

func (f *fakeNotifier) NotifyRunCompleted(_ context.Context, run notifications.Run) error {
	f.completed = append(f.completed, run)
	return f.err
}

func (f *fakeNotifier) NotifyRunFailed(_ context.Context, run notifications.Run, _ error) error {
	f.failed = append(f.failed, run)
	return f.err
}

func (f *fakeNotifier) TestNotification(context.Context) error { return f.err }

type harness struct {
	cfg      *config.Config
	store    *runstore.Store
	composer *fakeComposer
	renderer *fakeRenderer
	notifier *fakeNotifier
	// judgeCalls counts ranking prompts sent to the judge.
	judgeCalls atomic.Int32
	pipeline   *Pipeline
}

func newHarness(t *testing.T, source script.Source, narrator Narrator) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(t.TempDir(), "videos")
	store, err := runstore.Open(filepath.Join(t.TempDir(), "reelsmith.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	h := &harness{cfg: &cfg, store: store, composer: &fakeComposer{}, renderer: &fakeRenderer{}, notifier: &fakeNotifier{}}
	h.pipeline, err = New(Dependencies{
		Config:   h.cfg,
		Store:    store,
		Source:   source,
		Narrator: narrator,
		Probe:    fakeProbe{},
		Searcher: fakeSearcher{},
		Judge: ranking.JudgeFunc(func(_ context.Context, p ranking.Prompt) (int, error) {
			h.judgeCalls.Add(1)
			return len(p.Options), nil
		}),
		Fetcher:  fakeFetcher{},
		Composer: h.composer,
		Renderer: h.renderer,
		Notifier: h.notifier,
		Logger:   logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func TestGenerateRunsEveryStage(t *testing.T) {
	h := newHarness(t, fakeSource{paragraphs: []string{"first paragraph", "second paragraph"}}, fakeNarrator{})
	ctx := context.Background()

	res, err := h.pipeline.Generate(ctx, Options{Topic: "deep sea vents", VideoID: "run1"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Output != filepath.Join(h.cfg.Paths.WorkDir, "run1", "final_video.mp4") {
		t.Fatalf("unexpected output %q", res.Output)
	}
	if res.Schedule.Len() != 2 {
		t.Fatalf("expected 2 planned paragraphs, got %d", res.Schedule.Len())
	}
	part, _ := res.Schedule.Part(0)
	if part.NumImages != 4 || part.NumVideos != 4 {
		t.Fatalf("unexpected plan for 30s narration: %+v", part)
	}

	if len(h.composer.timelines) != 2 {
		t.Fatalf("expected 2 composed paragraphs, got %d", len(h.composer.timelines))
	}
	for _, tl := range h.composer.timelines {
		if tl.Len() != 8 {
			t.Fatalf("expected 8 segments, got %d", tl.Len())
		}
		if tl.Segments[0].SlotKey != "image1" || tl.Segments[4].SlotKey != "video1" {
			t.Fatalf("segments out of schedule order: %+v", tl.Segments)
		}
	}

	if len(h.renderer.requests) != 1 {
		t.Fatalf("expected one render, got %d", len(h.renderer.requests))
	}
	req := h.renderer.requests[0]
	if len(req.Clips) != 2 || len(req.Audios) != 2 || !strings.Contains(req.Audios[1], filepath.Join("p2", "video", "audio.wav")) {
		t.Fatalf("unexpected render request %+v", req)
	}

	run, err := h.store.Get(ctx, "run1")
	if err != nil || run == nil {
		t.Fatalf("Get: %#v %v", run, err)
	}
	if run.Status != runstore.StatusCompleted || run.Paragraphs != 2 {
		t.Fatalf("unexpected ledger entry %#v", run)
	}

	records, err := h.store.Selections(ctx, "run1")
	if err != nil {
		t.Fatalf("Selections: %v", err)
	}
	if len(records) != 16 {
		t.Fatalf("expected 16 selections, got %d", len(records))
	}
	seen := make(map[string]bool)
	for _, rec := range records {
		if seen[rec.URL] {
			t.Fatalf("url %s used twice in one run", rec.URL)
		}
		seen[rec.URL] = true
	}

	for _, path := range []string{
		filepath.Join(res.Dir, "script.json"),
		filepath.Join(res.Dir, "selections.json"),
		filepath.Join(res.Dir, "p1", "script", "script_1.json"),
		filepath.Join(res.Dir, "p2", "img", "image4.jpg"),
		filepath.Join(res.Dir, "p2", "video", "video4.mp4"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
	}
}

func TestGenerateDefaultConfigRanksVideoSlots(t *testing.T) {
	h := newHarness(t, fakeSource{paragraphs: []string{"first paragraph", "second paragraph"}}, fakeNarrator{})
	ctx := context.Background()

	if _, err := h.pipeline.Generate(ctx, Options{Topic: "deep sea vents", VideoID: "ranked"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// Two paragraphs of four video slots each; stills keep a single candidate.
	if got := h.judgeCalls.Load(); got != 8 {
		t.Fatalf("expected the judge to rank 8 video slots, got %d calls", got)
	}
	records, err := h.store.Selections(ctx, "ranked")
	if err != nil {
		t.Fatalf("Selections: %v", err)
	}
	for _, rec := range records {
		isVideo := strings.HasPrefix(rec.SlotKey, "video")
		if isVideo && (rec.Attempts != 1 || rec.Fallback || !strings.HasSuffix(rec.URL, "-4")) {
			t.Fatalf("expected the judge's last option for %s, got %+v", rec.SlotKey, rec)
		}
		if !isVideo && rec.Attempts != 0 {
			t.Fatalf("single-candidate image slot should skip the judge, got %+v", rec)
		}
	}
}

func TestGenerateSkipsParagraphWithoutNarration(t *testing.T) {
	h := newHarness(t,
		fakeSource{paragraphs: []string{"keep me", "drop me", "keep me too"}},
		fakeNarrator{fail: map[string]bool{"drop me": true}})

	res, err := h.pipeline.Generate(context.Background(), Options{Topic: "topic", VideoID: "run2"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Schedule.Len() != 2 {
		t.Fatalf("expected 2 planned paragraphs, got %d", res.Schedule.Len())
	}
	if _, ok := res.Schedule.Part(1); ok {
		t.Fatal("paragraph without narration must not be planned")
	}
	req := h.renderer.requests[0]
	if len(req.Clips) != 2 || !strings.Contains(req.Clips[1], "p3") {
		t.Fatalf("unexpected clips %v", req.Clips)
	}
}

func TestGenerateFailsWithoutUsablePlan(t *testing.T) {
	h := newHarness(t, fakeSource{paragraphs: []string{"only"}}, fakeNarrator{fail: map[string]bool{"only": true}})
	_, err := h.pipeline.Generate(context.Background(), Options{Topic: "topic", VideoID: "run3", CleanOnFailure: true})
	if !errors.Is(err, plan.ErrNoUsablePlan) {
		t.Fatalf("expected ErrNoUsablePlan, got %v", err)
	}
	run, _ := h.store.Get(context.Background(), "run3")
	if run == nil || run.Status != runstore.StatusFailed || !strings.HasPrefix(run.ErrorMessage, "validation") {
		t.Fatalf("expected failed run, got %#v", run)
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.WorkDir, "run3")); !os.IsNotExist(err) {
		t.Fatalf("expected run directory to be cleared, got %v", err)
	}
}

func TestGenerateKeepsWorkspaceOnRenderFailure(t *testing.T) {
	h := newHarness(t, fakeSource{paragraphs: []string{"text"}}, fakeNarrator{})
	h.renderer.err = services.Wrap(services.ErrExternalTool, "render", "mux", "", errors.New("ffmpeg died"))
	_, err := h.pipeline.Generate(context.Background(), Options{Topic: "topic", VideoID: "run4"})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.WorkDir, "run4", "p1", "segment.mp4")); err != nil {
		t.Fatalf("expected workspace to be kept: %v", err)
	}
	run, _ := h.store.Get(context.Background(), "run4")
	if run.Status != runstore.StatusFailed {
		t.Fatalf("expected failed status, got %s", run.Status)
	}
	if len(h.notifier.failed) != 1 || h.notifier.failed[0].VideoID != "run4" || h.notifier.failed[0].Title != "Deep Sea" {
		t.Fatalf("expected failure push for run4, got %+v", h.notifier.failed)
	}
	if len(h.notifier.completed) != 0 {
		t.Fatalf("unexpected completion push %+v", h.notifier.completed)
	}
}

func TestNotifierErrorsDoNotFailRun(t *testing.T) {
	h := newHarness(t, fakeSource{paragraphs: []string{"one", "two"}}, fakeNarrator{})
	h.notifier.err = errors.New("ntfy down")
	res, err := h.pipeline.Generate(context.Background(), Options{Topic: "topic", VideoID: "run6"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(h.notifier.completed) != 1 {
		t.Fatalf("expected one completion push, got %d", len(h.notifier.completed))
	}
	got := h.notifier.completed[0]
	if got.VideoID != "run6" || got.Title != "Deep Sea" || got.Output != res.Output || got.Skipped != 0 {
		t.Fatalf("unexpected completion payload %+v", got)
	}
	if got.Duration <= 0 {
		t.Fatalf("expected positive duration, got %s", got.Duration)
	}
}

func TestRenderRebuildsFromLedger(t *testing.T) {
	h := newHarness(t, fakeSource{paragraphs: []string{"a", "b"}}, fakeNarrator{})
	ctx := context.Background()
	if _, err := h.pipeline.Generate(ctx, Options{Topic: "topic", VideoID: "run5"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := os.Remove(filepath.Join(h.cfg.Paths.WorkDir, "run5", "p1", "img", "image2.jpg")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	res, err := h.pipeline.Render(ctx, "run5")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(h.renderer.requests) != 2 {
		t.Fatalf("expected a second render, got %d", len(h.renderer.requests))
	}
	last := h.composer.timelines[len(h.composer.timelines)-2]
	if last.Len() != 7 {
		t.Fatalf("expected the missing image to be skipped, got %d segments", last.Len())
	}
	if res.Alignment.PadBefore != 3 {
		t.Fatalf("unexpected alignment %+v", res.Alignment)
	}

	if _, err := h.pipeline.Render(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewAndGenerateValidateDependencies(t *testing.T) {
	if _, err := New(Dependencies{}); err == nil || !strings.Contains(err.Error(), "composer, config, probe, renderer, store") {
		t.Fatalf("unexpected error %v", err)
	}
	h := newHarness(t, nil, nil)
	_, err := h.pipeline.Generate(context.Background(), Options{Topic: "topic"})
	if !errors.Is(err, services.ErrConfiguration) || !strings.Contains(err.Error(), "narrator, source") {
		t.Fatalf("expected configuration error, got %v", err)
	}
	h = newHarness(t, fakeSource{paragraphs: []string{"x"}}, fakeNarrator{})
	if _, err := h.pipeline.Generate(context.Background(), Options{Topic: "  "}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
