package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffmpeg"
	"reelsmith/internal/plan"
	"reelsmith/internal/services"
)

// ErrNothingToRender reports a render request without clips or narration.
var ErrNothingToRender = errors.New("render: nothing to render")

// Request lists the inputs of the final mux in paragraph order.
type Request struct {
	Clips  []string
	Audios []string
	FPS    int
	Output string
}

// Settings controls the final encode.
type Settings struct {
	FFmpegBinary    string
	VideoCodec      string
	Preset          string
	CRF             int
	AudioSampleRate int
	AudioBitrate    string
}

// SettingsFromConfig derives renderer settings from configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		FFmpegBinary:    cfg.FFmpegBinary(),
		VideoCodec:      cfg.Render.VideoCodec,
		Preset:          cfg.Render.Preset,
		CRF:             cfg.Render.CRF,
		AudioSampleRate: cfg.Render.AudioSampleRate,
	}
}

// Renderer concatenates and muxes with ffmpeg.
type Renderer struct {
	settings Settings
	probe    plan.DurationProbe
	run      ffmpeg.Runner
	logger   *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithRunner overrides ffmpeg execution (tests).
func WithRunner(run ffmpeg.Runner) Option {
	return func(r *Renderer) {
		if run != nil {
			r.run = run
		}
	}
}

// NewRenderer constructs a Renderer. probe measures the concatenated tracks.
func NewRenderer(settings Settings, probe plan.DurationProbe, logger *slog.Logger, opts ...Option) *Renderer {
	if settings.FFmpegBinary == "" {
		settings.FFmpegBinary = "ffmpeg"
	}
	if settings.VideoCodec == "" {
		settings.VideoCodec = "libx264"
	}
	if settings.AudioSampleRate <= 0 {
		settings.AudioSampleRate = 44100
	}
	if settings.AudioBitrate == "" {
		settings.AudioBitrate = "192k"
	}
	r := &Renderer{
		settings: settings,
		probe:    probe,
		run:      ffmpeg.Run,
		logger:   logging.NewComponentLogger(logger, "render"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces req.Output and returns the alignment that was applied.
// Intermediate files are written next to the output and removed afterwards.
func (r *Renderer) Render(ctx context.Context, req Request) (Alignment, error) {
	if len(req.Clips) == 0 || len(req.Audios) == 0 || strings.TrimSpace(req.Output) == "" {
		return Alignment{}, ErrNothingToRender
	}
	if req.FPS <= 0 {
		req.FPS = 30
	}
	logger := logging.WithContext(ctx, r.logger)
	dir := filepath.Dir(req.Output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Alignment{}, fmt.Errorf("create output directory: %w", err)
	}
	videoTrack := filepath.Join(dir, "video_concat.mp4")
	audioTrack := filepath.Join(dir, "narration.wav")
	scratch := []string{videoTrack, audioTrack}
	defer func() {
		for _, p := range scratch {
			_ = os.Remove(p)
		}
	}()

	clipList, err := r.writeList(dir, "clips.txt", req.Clips)
	if err != nil {
		return Alignment{}, err
	}
	audioList, err := r.writeList(dir, "audio.txt", req.Audios)
	if err != nil {
		return Alignment{}, err
	}
	scratch = append(scratch, clipList, audioList)

	if err := r.ffmpeg(ctx, "concat clips", "-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", clipList, "-c", "copy", videoTrack); err != nil {
		return Alignment{}, err
	}
	if err := r.ffmpeg(ctx, "concat narration", "-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", audioList,
		"-ar", strconv.Itoa(r.settings.AudioSampleRate), "-ac", "1", "-c:a", "pcm_s16le", audioTrack); err != nil {
		return Alignment{}, err
	}

	videoSeconds, err := r.probe.Duration(ctx, videoTrack)
	if err != nil {
		return Alignment{}, services.Wrap(services.ErrExternalTool, "render", "probe video", filepath.Base(videoTrack), err)
	}
	audioSeconds, err := r.probe.Duration(ctx, audioTrack)
	if err != nil {
		return Alignment{}, services.Wrap(services.ErrExternalTool, "render", "probe narration", filepath.Base(audioTrack), err)
	}
	align := Align(videoSeconds, audioSeconds)
	logger.Info("track alignment",
		logging.Args(append(logging.DecisionAttrs("track_alignment", alignResult(align), "narration is never trimmed"),
			logging.Float64("video_seconds", videoSeconds),
			logging.Float64("audio_seconds", audioSeconds),
			logging.Float64("pad_before_seconds", align.PadBefore),
			logging.Float64("pad_after_seconds", align.PadAfter),
			logging.Float64("audio_pad_seconds", align.AudioPad),
		)...)...,
	)

	if err := r.ffmpeg(ctx, "mux", r.MuxArgs(videoTrack, audioTrack, align, req.FPS, req.Output)...); err != nil {
		return Alignment{}, err
	}
	logger.Info("final video rendered",
		logging.String(logging.FieldEventType, "render_completed"),
		logging.String("output", req.Output),
		logging.Float64("duration_seconds", align.TotalSeconds()),
		logging.Int("clips", len(req.Clips)),
	)
	return align, nil
}

// MuxArgs builds the final ffmpeg invocation for the aligned tracks.
func (r *Renderer) MuxArgs(videoTrack, audioTrack string, align Alignment, fps int, out string) []string {
	s := r.settings
	videoFilter := "null"
	if align.PadBefore > 0 || align.PadAfter > 0 {
		videoFilter = "tpad=start_mode=clone:start_duration=" + ffmpeg.Seconds(align.PadBefore) +
			":stop_mode=clone:stop_duration=" + ffmpeg.Seconds(align.PadAfter)
	}
	audioFilter := "anull"
	if align.AudioPad > 0 {
		audioFilter = "apad=pad_dur=" + ffmpeg.Seconds(align.AudioPad)
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoTrack,
		"-i", audioTrack,
		"-filter_complex", "[0:v]" + videoFilter + "[v];[1:a]" + audioFilter + "[a]",
		"-map", "[v]", "-map", "[a]",
		"-c:v", s.VideoCodec,
	}
	if s.Preset != "" {
		args = append(args, "-preset", s.Preset)
	}
	if s.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(s.CRF))
	}
	args = append(args,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(fps),
		"-c:a", "aac",
		"-b:a", s.AudioBitrate,
		"-ar", strconv.Itoa(s.AudioSampleRate),
		"-movflags", "+faststart",
		out,
	)
	return args
}

func (r *Renderer) writeList(dir, name string, paths []string) (string, error) {
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		full, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", p, err)
		}
		abs = append(abs, full)
	}
	list := filepath.Join(dir, name)
	if err := os.WriteFile(list, []byte(ffmpeg.ConcatList(abs)), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return list, nil
}

func (r *Renderer) ffmpeg(ctx context.Context, op string, args ...string) error {
	if err := r.run(ctx, r.settings.FFmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", op, "ffmpeg failed", err)
	}
	return nil
}

func alignResult(a Alignment) string {
	switch {
	case a.PadBefore > 0:
		return "pad_video"
	case a.AudioPad > 0:
		return "pad_audio"
	default:
		return "aligned"
	}
}
