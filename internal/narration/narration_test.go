package narration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffmpeg"
	"reelsmith/internal/services"
)

func TestCommandSynthesizerSubstitutesOutputAndPipesText(t *testing.T) {
	out := filepath.Join(t.TempDir(), "speech.wav")
	synth, err := NewCommandSynthesizer([]string{"piper", "--model", "m.onnx", "--output_file", "{output}"}, time.Minute)
	if err != nil {
		t.Fatalf("NewCommandSynthesizer: %v", err)
	}
	var gotStdin, gotName string
	var gotArgs []string
	synth.run = func(_ context.Context, stdin, name string, args ...string) error {
		gotStdin, gotName, gotArgs = stdin, name, args
		return os.WriteFile(out, []byte("RIFF"), 0o644)
	}
	if err := synth.Synthesize(context.Background(), "  Hello world. ", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotName != "piper" || gotStdin != "Hello world.\n" {
		t.Fatalf("unexpected invocation %q %q", gotName, gotStdin)
	}
	if gotArgs[len(gotArgs)-1] != out {
		t.Fatalf("expected output placeholder replaced, got %v", gotArgs)
	}
	if synth.Binary() != "piper" {
		t.Fatalf("unexpected binary %q", synth.Binary())
	}
}

func TestCommandSynthesizerErrors(t *testing.T) {
	if _, err := NewCommandSynthesizer(nil, 0); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := NewCommandSynthesizer([]string{"espeak-ng"}, 0); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected placeholder error, got %v", err)
	}
	synth, err := NewCommandSynthesizer([]string{"tts", "{output}"}, 0)
	if err != nil {
		t.Fatalf("NewCommandSynthesizer: %v", err)
	}
	synth.run = func(context.Context, string, string, ...string) error { return nil }
	out := filepath.Join(t.TempDir(), "missing.wav")
	if err := synth.Synthesize(context.Background(), "text", out); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected missing output to be an external tool error, got %v", err)
	}
	if err := synth.Synthesize(context.Background(), " ", out); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty text, got %v", err)
	}
}

type fileSynth struct{}

func (fileSynth) Synthesize(_ context.Context, _, outPath string) error {
	return os.WriteFile(outPath, []byte("RIFF"), 0o644)
}

func TestNarratorAppendsSilence(t *testing.T) {
	cfg := config.Default()
	cfg.Timing.SilenceSeconds = 2
	out := filepath.Join(t.TempDir(), "p1", "video", "audio.wav")

	var args []string
	n := NewNarrator(fileSynth{}, &cfg, logging.NewNop()).WithRunner(func(_ context.Context, name string, a ...string) error {
		if name != "ffmpeg" {
			t.Fatalf("unexpected binary %q", name)
		}
		args = a
		return nil
	})
	if err := n.Narrate(context.Background(), "text", out); err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if got := ffmpeg.ArgValue(args, "-af"); got != "apad=pad_dur=2.000" {
		t.Fatalf("unexpected filter %q", got)
	}
	if got := ffmpeg.ArgValue(args, "-ar"); got != "44100" {
		t.Fatalf("unexpected sample rate %q", got)
	}
	if args[len(args)-1] != out {
		t.Fatalf("expected output last, got %v", args)
	}
	raw := ffmpeg.ArgValue(args, "-i")
	if !strings.HasSuffix(raw, ".speech.wav") {
		t.Fatalf("unexpected intermediate %q", raw)
	}
	if _, err := os.Stat(raw); !os.IsNotExist(err) {
		t.Fatalf("expected intermediate speech file removed, stat err=%v", err)
	}
}

func TestNarratorWrapsFFmpegFailure(t *testing.T) {
	cfg := config.Default()
	n := NewNarrator(fileSynth{}, &cfg, nil).WithRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 1")
	})
	err := n.Narrate(context.Background(), "text", filepath.Join(t.TempDir(), "audio.wav"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
