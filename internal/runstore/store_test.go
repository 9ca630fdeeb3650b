package runstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"reelsmith/internal/footage"
	"reelsmith/internal/plan"
	"reelsmith/internal/ranking"
	"reelsmith/internal/runstore"
)

func openStore(t *testing.T) *runstore.Store {
	t.Helper()
	store, err := runstore.Open(filepath.Join(t.TempDir(), "state", "reelsmith.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "abc123", "deep sea vents", "", "/work/abc123")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.Status != runstore.StatusPending || run.Goal != "" || run.CreatedAt.IsZero() {
		t.Fatalf("unexpected new run %#v", run)
	}
	if err := store.SetStatus(ctx, "abc123", runstore.StatusRendering); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.SetParagraphs(ctx, "abc123", 4); err != nil {
		t.Fatalf("SetParagraphs: %v", err)
	}
	if err := store.Complete(ctx, "abc123", "/work/abc123/final_video.mp4"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, err := store.Get(ctx, "abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != runstore.StatusCompleted || got.OutputPath != "/work/abc123/final_video.mp4" || got.Paragraphs != 4 {
		t.Fatalf("unexpected run %#v", got)
	}

	if _, err := store.CreateRun(ctx, "def456", "volcanoes", "teach kids", "/work/def456"); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := store.Fail(ctx, "def456", "render failed"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	failed, err := store.List(ctx, runstore.StatusFailed)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != "def456" || failed[0].ErrorMessage != "render failed" {
		t.Fatalf("unexpected failed runs %#v", failed)
	}
	all, err := store.List(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected two runs, got %d (%v)", len(all), err)
	}
}

func TestGetUnknownAndUpdateMissing(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	run, err := store.Get(ctx, "nope")
	if err != nil || run != nil {
		t.Fatalf("expected nil run, got %#v (%v)", run, err)
	}
	if err := store.SetStatus(ctx, "nope", runstore.StatusPlanning); !errors.Is(err, runstore.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := store.CreateRun(ctx, " ", "topic", "", "/w"); err == nil {
		t.Fatal("expected empty id to be rejected")
	}
}

func TestPlansRoundTripAsSchedule(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, err := store.CreateRun(ctx, "run", "topic", "", "/w/run"); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	parts := []plan.PartPlan{
		{ParagraphIndex: 2, NumImages: 1, NumVideos: 0, ImageDurations: []float64{3.5}, NarrationSeconds: 10, SequenceSeconds: 12},
		{ParagraphIndex: 0, NumImages: 4, NumVideos: 2, ImageDurations: []float64{3.1, 3.1, 3.1, 3.1}, VideoDurations: []float64{4.65, 4.65}, NarrationSeconds: 30, SequenceSeconds: 32},
	}
	if err := store.SavePlans(ctx, "run", parts); err != nil {
		t.Fatalf("SavePlans: %v", err)
	}
	schedule, err := store.Plans(ctx, "run")
	if err != nil {
		t.Fatalf("Plans: %v", err)
	}
	if schedule.Len() != 2 {
		t.Fatalf("expected 2 plans, got %d", schedule.Len())
	}
	first, ok := schedule.Part(0)
	if !ok || !reflect.DeepEqual(first, parts[1]) {
		t.Fatalf("unexpected plan %#v", first)
	}
	third, ok := schedule.Part(2)
	if !ok || third.VideoDurations == nil || len(third.VideoDurations) != 0 {
		t.Fatalf("expected empty video durations, got %#v", third)
	}
	if _, ok := schedule.Part(1); ok {
		t.Fatal("paragraph 1 was never planned")
	}
}

func TestSelectionsReplacePerParagraph(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, err := store.CreateRun(ctx, "run", "topic", "", "/w/run"); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	first := []ranking.Selection{
		{SlotKey: "image1", Chosen: footage.Candidate{URL: "https://a", Description: "old"}, State: ranking.StateSelected, Attempts: 1},
	}
	second := []ranking.Selection{
		{SlotKey: "image2", Chosen: footage.Candidate{URL: "https://c"}, State: ranking.StateFailed, Attempts: 5, Fallback: true},
		{SlotKey: "image10", Chosen: footage.Candidate{URL: "https://b", Description: "sunset"}, TargetDescription: "sunset sky", State: ranking.StateSelected},
	}
	if err := store.SaveSelections(ctx, "run", 0, first); err != nil {
		t.Fatalf("SaveSelections: %v", err)
	}
	if err := store.SaveSelections(ctx, "run", 0, second); err != nil {
		t.Fatalf("SaveSelections: %v", err)
	}
	records, err := store.Selections(ctx, "run")
	if err != nil {
		t.Fatalf("Selections: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected replaced selections, got %#v", records)
	}
	if records[0].SlotKey != "image2" || !records[0].Fallback || records[0].Attempts != 5 {
		t.Fatalf("unexpected first record %#v", records[0])
	}
	if records[1].TargetDescription != "sunset sky" || records[1].Description != "sunset" {
		t.Fatalf("unexpected second record %#v", records[1])
	}
	if err := store.Remove(ctx, "run"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	records, err = store.Selections(ctx, "run")
	if err != nil || len(records) != 0 {
		t.Fatalf("expected selections to cascade, got %#v (%v)", records, err)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelsmith.db")
	store, err := runstore.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.CreateRun(context.Background(), "keep", "topic", "", "/w"); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	_ = store.Close()

	reopened, err := runstore.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	run, err := reopened.Get(context.Background(), "keep")
	if err != nil || run == nil {
		t.Fatalf("expected run to persist, got %#v (%v)", run, err)
	}
}
