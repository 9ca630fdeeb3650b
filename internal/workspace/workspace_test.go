package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"reelsmith/internal/logging"
)

func TestLayout(t *testing.T) {
	root := t.TempDir()
	ws, err := New(root, "abc123")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ws.Prepare(2); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	checks := map[string]string{
		ws.ScriptPath():           filepath.Join(root, "abc123", "script.json"),
		ws.SelectionsPath():       filepath.Join(root, "abc123", "selections.json"),
		ws.FinalPath():            filepath.Join(root, "abc123", "final_video.mp4"),
		ws.ParagraphScriptPath(1): filepath.Join(root, "abc123", "p2", "script", "script_2.json"),
		ws.NarrationPath(0):       filepath.Join(root, "abc123", "p1", "video", "audio.wav"),
		ws.SegmentPath(0):         filepath.Join(root, "abc123", "p1", "segment.mp4"),
	}
	for got, want := range checks {
		if got != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}
	img, err := ws.SlotPath(0, "image3")
	if err != nil || img != filepath.Join(root, "abc123", "p1", "img", "image3.jpg") {
		t.Fatalf("unexpected image slot path %q (%v)", img, err)
	}
	vid, err := ws.SlotPath(1, "video1")
	if err != nil || vid != filepath.Join(root, "abc123", "p2", "video", "video1.mp4") {
		t.Fatalf("unexpected video slot path %q (%v)", vid, err)
	}
	if _, err := ws.SlotPath(0, "audio"); err == nil {
		t.Fatal("expected error for unknown slot key")
	}
	got, err := ws.Paragraphs()
	if err != nil || !reflect.DeepEqual(got, []int{0, 1}) {
		t.Fatalf("unexpected paragraphs %v (%v)", got, err)
	}
}

func TestNewRejectsTraversal(t *testing.T) {
	for _, id := range []string{"", "..", "a/b", " "} {
		if _, err := New(t.TempDir(), id); err == nil {
			t.Fatalf("expected %q to be rejected", id)
		}
	}
	if id := NewVideoID(); len(id) != 12 {
		t.Fatalf("unexpected video id %q", id)
	}
}

func TestMediaFilesListsOnlyUsableSlots(t *testing.T) {
	ws, _ := New(t.TempDir(), "run")
	if err := ws.Prepare(1); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	write := func(path, body string) {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write(filepath.Join(ws.ImageDir(0), "image1.jpg"), "x")
	write(filepath.Join(ws.ImageDir(0), "image2.jpg"), "")
	write(filepath.Join(ws.ImageDir(0), "image3.jpg.part"), "x")
	write(filepath.Join(ws.VideoDir(0), "video1.mp4"), "x")
	write(ws.NarrationPath(0), "wav")

	files := ws.MediaFiles(0)
	if len(files) != 2 || files["image1"] == "" || files["video1"] == "" {
		t.Fatalf("unexpected media files %v", files)
	}
}

func TestLockIsExclusive(t *testing.T) {
	root := t.TempDir()
	first, _ := New(root, "run")
	second, _ := New(root, "run")
	if err := first.Lock(); err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if err := second.Lock(); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := second.Lock(); err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	_ = second.Unlock()
}

func TestPruneRemovesOnlyStaleRuns(t *testing.T) {
	root := t.TempDir()
	old, _ := New(root, "old")
	fresh, _ := New(root, "fresh")
	for _, ws := range []*Workspace{old, fresh} {
		if err := ws.Prepare(1); err != nil {
			t.Fatalf("Prepare: %v", err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old.Dir, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	runs, err := List(root)
	if err != nil || len(runs) != 2 || runs[0].VideoID != "fresh" {
		t.Fatalf("unexpected listing %+v (%v)", runs, err)
	}

	result := Prune(context.Background(), root, 24*time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != old.Dir {
		t.Fatalf("unexpected removals %v", result.Removed)
	}
	if _, err := os.Stat(fresh.Dir); err != nil {
		t.Fatalf("fresh run should survive: %v", err)
	}
}
