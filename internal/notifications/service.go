package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/config"
)

const userAgent = "reelsmith/0.1"

// Service defines the notification surface used by the pipeline and CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, run Run) error
	NotifyRunFailed(ctx context.Context, run Run, err error) error
	TestNotification(ctx context.Context) error
}

// Run describes the finished run a notification is about.
type Run struct {
	VideoID  string
	Title    string
	Output   string
	Duration time.Duration
	// Skipped counts paragraphs left out of the final video.
	Skipped int
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, run Run) error {
	var b strings.Builder
	fmt.Fprintf(&b, "🎬 Video ready: %s", label(run))
	if run.Duration > 0 {
		fmt.Fprintf(&b, " (%s)", run.Duration.Round(time.Second))
	}
	if run.Skipped > 0 {
		fmt.Fprintf(&b, "\n%d paragraph(s) skipped", run.Skipped)
	}
	if output := strings.TrimSpace(run.Output); output != "" {
		fmt.Fprintf(&b, "\nFile: %s", output)
	}
	data := payload{
		title:   "reelsmith - Video Ready",
		message: b.String(),
		tags:    []string{"reelsmith", "render", "completed"},
	}
	if run.Skipped > 0 {
		data.tags = append(data.tags, "partial")
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, run Run, err error) error {
	detail := "unknown"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    "reelsmith - Run Failed",
		message:  fmt.Sprintf("❌ %s failed: %s", label(run), detail),
		tags:     []string{"reelsmith", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "reelsmith - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"reelsmith", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func label(run Run) string {
	title := strings.TrimSpace(run.Title)
	id := strings.TrimSpace(run.VideoID)
	switch {
	case title != "" && id != "":
		return fmt.Sprintf("%s [%s]", title, id)
	case title != "":
		return title
	case id != "":
		return id
	default:
		return "run"
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, Run) error     { return nil }
func (noopService) NotifyRunFailed(context.Context, Run, error) error { return nil }
func (noopService) TestNotification(context.Context) error            { return nil }
