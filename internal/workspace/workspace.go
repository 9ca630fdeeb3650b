package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"reelsmith/internal/footage"
)

// ErrLocked reports a run directory held by another process.
var ErrLocked = errors.New("workspace: run is locked by another process")

const (
	scriptFile     = "script.json"
	selectionsFile = "selections.json"
	finalFile      = "final_video.mp4"
	segmentFile    = "segment.mp4"
	narrationFile  = "audio.wav"
	lockFile       = ".reelsmith.lock"
)

// NewVideoID returns a short random run identifier.
func NewVideoID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Workspace resolves paths inside one run directory.
type Workspace struct {
	VideoID string
	Dir     string

	lock *flock.Flock
}

// New returns the workspace for videoID under workDir. Nothing is created.
func New(workDir, videoID string) (*Workspace, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" || strings.ContainsAny(videoID, `/\`) || videoID == "." || videoID == ".." {
		return nil, fmt.Errorf("workspace: invalid video id %q", videoID)
	}
	dir := filepath.Join(workDir, videoID)
	return &Workspace{VideoID: videoID, Dir: dir, lock: flock.New(filepath.Join(dir, lockFile))}, nil
}

// Open returns the workspace for an existing run.
func Open(workDir, videoID string) (*Workspace, error) {
	ws, err := New(workDir, videoID)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(ws.Dir)
	if err != nil {
		return nil, fmt.Errorf("workspace: open %s: %w", videoID, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace: %s is not a directory", ws.Dir)
	}
	return ws, nil
}

// Prepare creates the run and paragraph directories.
func (w *Workspace) Prepare(paragraphs int) error {
	for i := range paragraphs {
		for _, dir := range []string{w.ParagraphScriptDir(i), w.ImageDir(i), w.VideoDir(i)} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("workspace: create %s: %w", dir, err)
			}
		}
	}
	return os.MkdirAll(w.Dir, 0o755)
}

// Lock takes the run lock without blocking.
func (w *Workspace) Lock() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("workspace: create %s: %w", w.Dir, err)
	}
	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("workspace: acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Unlock releases the run lock.
func (w *Workspace) Unlock() error {
	return w.lock.Unlock()
}

// Clear removes the whole run directory.
func (w *Workspace) Clear() error {
	if err := os.RemoveAll(w.Dir); err != nil {
		return fmt.Errorf("workspace: clear %s: %w", w.Dir, err)
	}
	return nil
}

func (w *Workspace) ScriptPath() string     { return filepath.Join(w.Dir, scriptFile) }
func (w *Workspace) SelectionsPath() string { return filepath.Join(w.Dir, selectionsFile) }
func (w *Workspace) FinalPath() string      { return filepath.Join(w.Dir, finalFile) }

// ParagraphDir returns p<N> for the 0-based paragraph index.
func (w *Workspace) ParagraphDir(index int) string {
	return filepath.Join(w.Dir, "p"+strconv.Itoa(index+1))
}

func (w *Workspace) ParagraphScriptDir(index int) string {
	return filepath.Join(w.ParagraphDir(index), "script")
}

// ParagraphScriptPath returns p<N>/script/script_<N>.json.
func (w *Workspace) ParagraphScriptPath(index int) string {
	return filepath.Join(w.ParagraphScriptDir(index), "script_"+strconv.Itoa(index+1)+".json")
}

func (w *Workspace) ImageDir(index int) string { return filepath.Join(w.ParagraphDir(index), "img") }
func (w *Workspace) VideoDir(index int) string { return filepath.Join(w.ParagraphDir(index), "video") }

// NarrationPath returns the paragraph narration with its trailing silence.
func (w *Workspace) NarrationPath(index int) string {
	return filepath.Join(w.VideoDir(index), narrationFile)
}

// SegmentPath returns the paragraph composite clip.
func (w *Workspace) SegmentPath(index int) string {
	return filepath.Join(w.ParagraphDir(index), segmentFile)
}

// SlotPath returns the media file for a slot key such as image2 or video1.
func (w *Workspace) SlotPath(index int, slotKey string) (string, error) {
	kind, _, err := footage.ParseSlotKey(slotKey)
	if err != nil {
		return "", err
	}
	dir := w.VideoDir(index)
	if kind == footage.KindImage {
		dir = w.ImageDir(index)
	}
	return filepath.Join(dir, slotKey+kind.Extension()), nil
}

// MediaFiles maps slot keys to the non-empty media files present for a paragraph.
func (w *Workspace) MediaFiles(index int) map[string]string {
	files := make(map[string]string)
	for _, dir := range []string{w.ImageDir(index), w.VideoDir(index)} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			key := strings.TrimSuffix(name, filepath.Ext(name))
			if entry.IsDir() || name == narrationFile {
				continue
			}
			kind, _, err := footage.ParseSlotKey(key)
			if err != nil || filepath.Ext(name) != kind.Extension() {
				continue
			}
			if info, err := entry.Info(); err == nil && info.Size() > 0 {
				files[key] = filepath.Join(dir, name)
			}
		}
	}
	return files
}

// Paragraphs returns the 0-based indexes of the p<N> directories present, sorted.
func (w *Workspace) Paragraphs() ([]int, error) {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		return nil, fmt.Errorf("workspace: list %s: %w", w.Dir, err)
	}
	var indexes []int
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "p") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(entry.Name(), "p"))
		if err != nil || n < 1 {
			continue
		}
		indexes = append(indexes, n-1)
	}
	sort.Ints(indexes)
	return indexes, nil
}
