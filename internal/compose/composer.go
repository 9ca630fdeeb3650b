package compose

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/footage"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffmpeg"
	"reelsmith/internal/services"
)

// Settings controls the encoded paragraph clip.
type Settings struct {
	FFmpegBinary string
	Frame        footage.FrameSize
	FPS          int
	VideoCodec   string
	Preset       string
	CRF          int
	Transition   string
}

// SettingsFromConfig derives composer settings from the render section.
func SettingsFromConfig(cfg *config.Config, frame footage.FrameSize) Settings {
	return Settings{
		FFmpegBinary: cfg.FFmpegBinary(),
		Frame:        frame,
		FPS:          cfg.Render.FPS,
		VideoCodec:   cfg.Render.VideoCodec,
		Preset:       cfg.Render.Preset,
		CRF:          cfg.Render.CRF,
	}
}

// Composer renders timelines into paragraph clips.
type Composer struct {
	settings Settings
	run      ffmpeg.Runner
	logger   *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithRunner overrides ffmpeg execution (tests).
func WithRunner(run ffmpeg.Runner) Option {
	return func(c *Composer) {
		if run != nil {
			c.run = run
		}
	}
}

// NewComposer constructs a Composer.
func NewComposer(settings Settings, logger *slog.Logger, opts ...Option) *Composer {
	if settings.FFmpegBinary == "" {
		settings.FFmpegBinary = "ffmpeg"
	}
	if settings.FPS <= 0 {
		settings.FPS = 30
	}
	if settings.VideoCodec == "" {
		settings.VideoCodec = "libx264"
	}
	if settings.Transition == "" {
		settings.Transition = "fade"
	}
	c := &Composer{
		settings: settings,
		run:      ffmpeg.Run,
		logger:   logging.NewComponentLogger(logger, "compose"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose renders tl to out.
func (c *Composer) Compose(ctx context.Context, tl Timeline, out string) error {
	if tl.Len() == 0 {
		return ErrEmptyTimeline
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create clip directory: %w", err)
	}
	args := c.Args(tl, out)
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("composing paragraph clip",
		logging.String(logging.FieldEventType, "compose_started"),
		logging.Int("segments", tl.Len()),
		logging.Float64("duration_seconds", tl.Total()),
		logging.String("output", out),
	)
	if err := c.run(ctx, c.settings.FFmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "compose", "ffmpeg", filepath.Base(out), err)
	}
	return nil
}

// Args builds the ffmpeg argument list for tl.
func (c *Composer) Args(tl Timeline, out string) []string {
	s := c.settings
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, seg := range tl.Segments {
		if seg.Kind == footage.KindImage {
			args = append(args, "-loop", "1")
		}
		args = append(args, "-t", ffmpeg.Seconds(seg.Duration), "-i", seg.Path)
	}
	args = append(args,
		"-filter_complex", c.filterGraph(tl),
		"-map", "[out]",
		"-an",
		"-c:v", s.VideoCodec,
	)
	if s.Preset != "" {
		args = append(args, "-preset", s.Preset)
	}
	if s.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(s.CRF))
	}
	args = append(args, "-pix_fmt", "yuv420p", "-r", strconv.Itoa(s.FPS), out)
	return args
}

func (c *Composer) filterGraph(tl Timeline) string {
	s := c.settings
	w, h := strconv.Itoa(s.Frame.Width), strconv.Itoa(s.Frame.Height)
	fit := "scale=" + w + ":" + h + ":force_original_aspect_ratio=decrease," +
		"pad=" + w + ":" + h + ":(ow-iw)/2:(oh-ih)/2,setsar=1," +
		"fps=" + strconv.Itoa(s.FPS) + ",format=yuv420p"

	var graph []string
	for i, seg := range tl.Segments {
		graph = append(graph, fmt.Sprintf("[%d:v]%s,trim=duration=%s,setpts=PTS-STARTPTS[v%d]",
			i, fit, ffmpeg.Seconds(seg.Duration), i))
	}
	if tl.Len() == 1 {
		graph = append(graph, "[v0]null[out]")
		return strings.Join(graph, ";")
	}
	prev := "v0"
	for i := 1; i < tl.Len(); i++ {
		label := "x" + strconv.Itoa(i)
		if i == tl.Len()-1 {
			label = "out"
		}
		graph = append(graph, fmt.Sprintf("[%s][v%d]xfade=transition=%s:duration=%s:offset=%s[%s]",
			prev, i, s.Transition, ffmpeg.Seconds(tl.Crossfade), ffmpeg.Seconds(tl.Segments[i].Start), label))
		prev = label
	}
	return strings.Join(graph, ";")
}
