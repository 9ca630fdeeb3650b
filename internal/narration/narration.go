package narration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffmpeg"
	"reelsmith/internal/services"
)

const outputPlaceholder = "{output}"

// Synthesizer writes speech audio for text to outPath.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

// stdinRunner runs a command with text on stdin.
type stdinRunner func(ctx context.Context, stdin string, name string, args ...string) error

func defaultStdinRunner(ctx context.Context, stdin string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Stdin = strings.NewReader(stdin)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, ffmpeg.Tail(string(output), 8))
	}
	return nil
}

// CommandSynthesizer runs a configurable TTS command.
type CommandSynthesizer struct {
	argv    []string
	timeout time.Duration
	run     stdinRunner
}

// NewCommandSynthesizer builds a synthesizer from an argv template. Every
// "{output}" in the template is replaced with the target path.
func NewCommandSynthesizer(argv []string, timeout time.Duration) (*CommandSynthesizer, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "narration", "configure", "narration.command is empty", nil)
	}
	if !containsPlaceholder(argv) {
		return nil, services.Wrap(services.ErrConfiguration, "narration", "configure",
			"narration.command must contain "+outputPlaceholder, nil)
	}
	return &CommandSynthesizer{argv: append([]string(nil), argv...), timeout: timeout, run: defaultStdinRunner}, nil
}

// Binary returns the TTS executable name.
func (s *CommandSynthesizer) Binary() string {
	return s.argv[0]
}

// Synthesize implements Synthesizer.
func (s *CommandSynthesizer) Synthesize(ctx context.Context, text, outPath string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(services.ErrValidation, "narration", "synthesize", "empty text", nil)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	args := make([]string, 0, len(s.argv)-1)
	for _, arg := range s.argv[1:] {
		args = append(args, strings.ReplaceAll(arg, outputPlaceholder, outPath))
	}
	if err := s.run(ctx, text+"\n", s.argv[0], args...); err != nil {
		marker := services.ErrExternalTool
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return services.Wrap(marker, "narration", "synthesize", s.argv[0], err)
	}
	if info, err := os.Stat(outPath); err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "narration", "synthesize", "no audio produced", err)
	}
	return nil
}

func containsPlaceholder(argv []string) bool {
	for _, arg := range argv[1:] {
		if strings.Contains(arg, outputPlaceholder) {
			return true
		}
	}
	return false
}

// Narrator synthesizes narration and pads it with trailing silence.
type Narrator struct {
	synth      Synthesizer
	ffmpegBin  string
	silence    float64
	sampleRate int
	run        ffmpeg.Runner
	logger     *slog.Logger
}

// NewNarrator constructs a Narrator from configuration.
func NewNarrator(synth Synthesizer, cfg *config.Config, logger *slog.Logger) *Narrator {
	return &Narrator{
		synth:      synth,
		ffmpegBin:  cfg.FFmpegBinary(),
		silence:    cfg.Timing.SilenceSeconds,
		sampleRate: cfg.Render.AudioSampleRate,
		run:        ffmpeg.Run,
		logger:     logging.NewComponentLogger(logger, "narration"),
	}
}

// WithRunner overrides ffmpeg execution (tests).
func (n *Narrator) WithRunner(run ffmpeg.Runner) *Narrator {
	if run != nil {
		n.run = run
	}
	return n
}

// Narrate writes outPath: the synthesized speech followed by the configured silence.
func (n *Narrator) Narrate(ctx context.Context, text, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create narration directory: %w", err)
	}
	rawPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".speech.wav"
	defer os.Remove(rawPath)

	started := time.Now()
	if err := n.synth.Synthesize(ctx, text, rawPath); err != nil {
		return err
	}
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", rawPath}
	if n.silence > 0 {
		args = append(args, "-af", "apad=pad_dur="+ffmpeg.Seconds(n.silence))
	}
	if n.sampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(n.sampleRate))
	}
	args = append(args, "-ac", "1", outPath)
	if err := n.run(ctx, n.ffmpegBin, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "narration", "pad silence", "ffmpeg", err)
	}
	logging.WithContext(ctx, n.logger).Info("narration ready",
		logging.String(logging.FieldEventType, "narration_ready"),
		logging.String("path", outPath),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}
