package pexels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/footage"
)

const (
	defaultBaseURL = "https://api.pexels.com"
	defaultPerPage = 80
	maxPerPage     = 80
)

// SearchOptions narrows a search.
type SearchOptions struct {
	Orientation footage.Orientation
	// Size is the minimum asset size tier: small, medium or large.
	Size    string
	PerPage int
	Page    int
}

// RateLimit mirrors the X-Ratelimit-* response headers.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// Photo is a single photo search hit.
type Photo struct {
	ID     int64  `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	Src    struct {
		Original string `json:"original"`
		Large2x  string `json:"large2x"`
		Large    string `json:"large"`
	} `json:"src"`
}

// VideoFile is one encoding of a video.
type VideoFile struct {
	ID       int64  `json:"id"`
	Quality  string `json:"quality"`
	FileType string `json:"file_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Link     string `json:"link"`
}

// Video is a single video search hit.
type Video struct {
	ID         int64       `json:"id"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	URL        string      `json:"url"`
	Duration   int         `json:"duration"`
	VideoFiles []VideoFile `json:"video_files"`
}

type photoResponse struct {
	Page         int     `json:"page"`
	PerPage      int     `json:"per_page"`
	TotalResults int     `json:"total_results"`
	Photos       []Photo `json:"photos"`
}

type videoResponse struct {
	Page         int     `json:"page"`
	PerPage      int     `json:"per_page"`
	TotalResults int     `json:"total_results"`
	Videos       []Video `json:"videos"`
}

// Client talks to the Pexels API.
type Client struct {
	apiKey     string
	baseURL    string
	perPage    int
	httpClient *http.Client
	lastLimit  RateLimit
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPerPage overrides the default page size (max 80).
func WithPerPage(perPage int) Option {
	return func(c *Client) {
		if perPage > 0 {
			c.perPage = min(perPage, maxPerPage)
		}
	}
}

// New creates a Pexels client.
func New(apiKey, baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("pexels api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		perPage:    defaultPerPage,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// LastRateLimit returns the rate limit reported by the most recent response.
// Not synchronized; read it from the goroutine that issued the search.
func (c *Client) LastRateLimit() RateLimit {
	return c.lastLimit
}

// SearchPhotos returns one candidate per photo on the requested page.
func (c *Client) SearchPhotos(ctx context.Context, query string, opts SearchOptions) ([]footage.Candidate, error) {
	var payload photoResponse
	if err := c.get(ctx, "/v1/search", query, opts, &payload); err != nil {
		return nil, err
	}
	out := make([]footage.Candidate, 0, len(payload.Photos))
	for _, photo := range payload.Photos {
		link := photo.Src.Original
		if link == "" {
			link = photo.Src.Large2x
		}
		if link == "" {
			continue
		}
		out = append(out, footage.Candidate{
			URL:         link,
			Description: strings.TrimSpace(photo.Alt),
			Width:       photo.Width,
			Height:      photo.Height,
			Kind:        footage.KindImage,
			PageURL:     photo.URL,
		})
	}
	return out, nil
}

// SearchVideos returns one candidate per video file on the requested page,
// in provider order.
func (c *Client) SearchVideos(ctx context.Context, query string, opts SearchOptions) ([]footage.Candidate, error) {
	var payload videoResponse
	if err := c.get(ctx, "/videos/search", query, opts, &payload); err != nil {
		return nil, err
	}
	out := make([]footage.Candidate, 0, len(payload.Videos))
	for _, video := range payload.Videos {
		description := DescriptionFromURL(video.URL)
		for _, file := range video.VideoFiles {
			if file.Link == "" {
				continue
			}
			out = append(out, footage.Candidate{
				URL:         file.Link,
				Description: description,
				Width:       file.Width,
				Height:      file.Height,
				Quality:     strings.ToLower(strings.TrimSpace(file.Quality)),
				Kind:        footage.KindVideo,
				PageURL:     video.URL,
			})
		}
	}
	return out, nil
}

var slugPattern = regexp.MustCompile(`/video/([a-z0-9-]+)-\d+/?$`)

// DescriptionFromURL derives a description from a Pexels video page URL:
// https://www.pexels.com/video/woman-doing-yoga-3191251/ -> "woman doing yoga".
func DescriptionFromURL(pageURL string) string {
	match := slugPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(pageURL)))
	if len(match) < 2 {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(match[1], "-", " "))
}

func (c *Client) get(ctx context.Context, path, query string, opts SearchOptions, dest any) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return errors.New("query must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse pexels url: %w", err)
	}
	perPage := c.perPage
	if opts.PerPage > 0 {
		perPage = min(opts.PerPage, maxPerPage)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(perPage))
	if opts.Orientation != "" {
		params.Set("orientation", opts.Orientation.ProviderValue())
	}
	if size := strings.TrimSpace(opts.Size); size != "" {
		params.Set("size", size)
	}
	if opts.Page > 1 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()
	c.lastLimit = parseRateLimit(resp.Header)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body)), Latency: latency}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode pexels response: %w", err)
	}
	return nil
}

// StatusError reports a non-200 response.
type StatusError struct {
	StatusCode int
	Body       string
	Latency    time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pexels search returned %d (latency=%v): %s", e.StatusCode, e.Latency, e.Body)
}

// RateLimited reports whether the API rejected the request for quota reasons.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

func parseRateLimit(h http.Header) RateLimit {
	var rl RateLimit
	rl.Limit, _ = strconv.Atoi(h.Get("X-Ratelimit-Limit"))
	rl.Remaining, _ = strconv.Atoi(h.Get("X-Ratelimit-Remaining"))
	if reset, err := strconv.ParseInt(h.Get("X-Ratelimit-Reset"), 10, 64); err == nil && reset > 0 {
		rl.Reset = time.Unix(reset, 0)
	}
	return rl
}
