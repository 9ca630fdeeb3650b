package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"reelsmith/internal/footage"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffmpeg"
	"reelsmith/internal/services"
)

// Job is one media file to fetch.
type Job struct {
	ParagraphIndex int
	SlotKey        string
	Candidate      footage.Candidate
	Path           string
}

// Result reports the outcome of a Job.
type Result struct {
	Job
	Err error
}

// Fetcher downloads a batch of jobs.
type Fetcher interface {
	FetchAll(ctx context.Context, jobs []Job) []Result
}

// Downloader fetches over HTTP and post-processes images with ffmpeg.
type Downloader struct {
	httpClient  *http.Client
	ffmpegBin   string
	frame       footage.FrameSize
	concurrency int
	run         ffmpeg.Runner
	logger      *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithRunner overrides ffmpeg execution (tests).
func WithRunner(run ffmpeg.Runner) Option {
	return func(d *Downloader) {
		if run != nil {
			d.run = run
		}
	}
}

// New constructs a Downloader.
func New(ffmpegBin string, frame footage.FrameSize, concurrency int, timeout time.Duration, logger *slog.Logger, opts ...Option) *Downloader {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	d := &Downloader{
		httpClient:  &http.Client{Timeout: timeout},
		ffmpegBin:   ffmpegBin,
		frame:       frame,
		concurrency: max(concurrency, 1),
		run:         ffmpeg.Run,
		logger:      logging.NewComponentLogger(logger, "download"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FetchAll implements Fetcher. Results are returned in job order.
func (d *Downloader) FetchAll(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	var group errgroup.Group
	group.SetLimit(d.concurrency)
	for i, job := range jobs {
		group.Go(func() error {
			results[i] = Result{Job: job, Err: d.Fetch(ctx, job)}
			return nil
		})
	}
	_ = group.Wait()

	failed := 0
	for _, res := range results {
		if res.Err == nil {
			continue
		}
		failed++
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "media download failed", "download_failed",
			logging.Int(logging.FieldParagraph, res.ParagraphIndex+1),
			logging.String(logging.FieldSlot, res.SlotKey),
			logging.String("url", res.Candidate.URL),
			logging.Error(res.Err),
			logging.String(logging.FieldImpact, "slot skipped in the paragraph clip"),
		)
	}
	logging.WithContext(ctx, d.logger).Info("downloads finished",
		logging.String(logging.FieldEventType, "downloads_finished"),
		logging.Int("total", len(jobs)),
		logging.Int("failed", failed),
	)
	return results
}

// Fetch downloads one job. An existing non-empty file is kept.
func (d *Downloader) Fetch(ctx context.Context, job Job) error {
	if info, err := os.Stat(job.Path); err == nil && info.Size() > 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(job.Path), 0o755); err != nil {
		return fmt.Errorf("create media directory: %w", err)
	}
	tmp := job.Path + ".part"
	defer os.Remove(tmp)
	if err := d.get(ctx, job.Candidate.URL, tmp); err != nil {
		return err
	}
	if job.Candidate.Kind == footage.KindImage {
		return d.cropImage(ctx, tmp, job.Path)
	}
	if err := os.Rename(tmp, job.Path); err != nil {
		return fmt.Errorf("store media: %w", err)
	}
	return nil
}

func (d *Downloader) get(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "download", "get", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		marker := services.ErrTransient
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, "download", "get", fmt.Sprintf("%s returned %d", url, resp.StatusCode), nil)
	}
	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dest), err)
	}
	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(dest), err)
	}
	if written == 0 {
		return services.Wrap(services.ErrTransient, "download", "get", url+" returned no data", nil)
	}
	return nil
}

func (d *Downloader) cropImage(ctx context.Context, src, dest string) error {
	w, h := strconv.Itoa(d.frame.Width), strconv.Itoa(d.frame.Height)
	filter := "scale=" + w + ":" + h + ":force_original_aspect_ratio=increase,crop=" + w + ":" + h
	// Crop next to dest, keeping the extension ffmpeg picks the encoder from,
	// so a failed run never leaves a partial file at dest.
	ext := filepath.Ext(dest)
	tmp := strings.TrimSuffix(dest, ext) + ".crop" + ext
	defer os.Remove(tmp)
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", src, "-vf", filter, "-frames:v", "1", "-q:v", "2", tmp}
	if err := d.run(ctx, d.ffmpegBin, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "download", "crop image", filepath.Base(dest), err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("store image: %w", err)
	}
	return nil
}
