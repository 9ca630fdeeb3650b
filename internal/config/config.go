package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Script contains narration script generation settings.
type Script struct {
	MaxParagraphs            int    `toml:"max_paragraphs"`
	MinWords                 int    `toml:"min_words"`
	MaxWords                 int    `toml:"max_words"`
	DescriptionsPerParagraph int    `toml:"descriptions_per_paragraph"`
	Language                 string `toml:"language"`
}

// Timing contains the clip allocation constraints applied per paragraph.
type Timing struct {
	// SilenceSeconds is appended to every paragraph narration.
	SilenceSeconds float64 `toml:"silence_seconds"`
	// CrossfadeSeconds is the overlap between two adjacent clips.
	CrossfadeSeconds float64 `toml:"crossfade_seconds"`
	ImageShare       float64 `toml:"image_share"`
	VideoShare       float64 `toml:"video_share"`
	MinImages        int     `toml:"min_images"`
	MinVideos        int     `toml:"min_videos"`
	MinImageSeconds  float64 `toml:"min_image_seconds"`
	MaxImageSeconds  float64 `toml:"max_image_seconds"`
	MinVideoSeconds  float64 `toml:"min_video_seconds"`
	MaxVideoSeconds  float64 `toml:"max_video_seconds"`
}

// Media contains stock media selection settings.
type Media struct {
	Orientation  string `toml:"orientation"`
	AssetSize    string `toml:"asset_size"`
	VideoQuality string `toml:"video_quality"`
	// ImageCandidatesPerSlot and VideoCandidatesPerSlot cap how many unique
	// matches from one search page a slot keeps for the judge to choose among.
	ImageCandidatesPerSlot int `toml:"image_candidates_per_slot"`
	VideoCandidatesPerSlot int `toml:"video_candidates_per_slot"`
	MaxDescriptionCycles   int `toml:"max_description_cycles"`
	SelectConcurrency      int `toml:"select_concurrency"`
}

// Pexels contains configuration for the Pexels stock media API.
type Pexels struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	PerPage        int    `toml:"per_page"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM contains shared LLM connection settings used by script generation and ranking.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Ranking contains media ranking settings.
type Ranking struct {
	MaxRetries    int `toml:"max_retries"`
	BackoffBaseMS int `toml:"backoff_base_ms"`
	BackoffMaxMS  int `toml:"backoff_max_ms"`
	// Similarity selects the optional 1-9 scorer: "off", "llm" or "lexical".
	Similarity string `toml:"similarity"`
}

// Narration contains text-to-speech settings.
type Narration struct {
	// Command is the TTS argv. The paragraph text is written to stdin and the
	// placeholder {output} is replaced with the target wav path.
	Command        []string `toml:"command"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Render contains ffmpeg compositing settings.
type Render struct {
	FPS             int    `toml:"fps"`
	AudioSampleRate int    `toml:"audio_sample_rate"`
	VideoCodec      string `toml:"video_codec"`
	Preset          string `toml:"preset"`
	CRF             int    `toml:"crf"`
	FFmpegBinary    string `toml:"ffmpeg_binary"`
	FFprobeBinary   string `toml:"ffprobe_binary"`
}

// Download contains media download settings.
type Download struct {
	Concurrency    int `toml:"concurrency"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Notifications contains ntfy push settings.
type Notifications struct {
	// NtfyTopic is the full topic URL, e.g. https://ntfy.sh/my-videos. Empty disables pushes.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelsmith.
//
// Configuration sections by subsystem:
//   - Paths: run workspace, logs and the run ledger
//   - Script: paragraph count and narration length
//   - Timing: clip allocation constraints
//   - Media: orientation, asset size and selection bounds
//   - Pexels: stock media API
//   - LLM: shared LLM connection settings
//   - Ranking: judge retries and similarity scoring
//   - Narration: TTS command
//   - Render: ffmpeg output settings
//   - Download: media fetch parallelism
//   - Notifications: ntfy pushes when a run ends
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Script    Script    `toml:"script"`
	Timing    Timing    `toml:"timing"`
	Media     Media     `toml:"media"`
	Pexels    Pexels    `toml:"pexels"`
	LLM       LLM       `toml:"llm"`
	Ranking   Ranking   `toml:"ranking"`
	Narration Narration `toml:"narration"`
	Render    Render    `toml:"render"`
	Download  Download  `toml:"download"`
	Logging   Logging   `toml:"logging"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the workspace, log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for compositing.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Render.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// FFprobeBinary returns the ffprobe executable used for duration probes.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Render.FFprobeBinary); bin != "" {
		return bin
	}
	return defaultFFprobeBinary
}

// LedgerPath returns the SQLite run ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "reelsmith.db")
}

// LogFilePath returns the persistent log file location.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "reelsmith.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		switch {
		case pathValue == "~":
			pathValue = home
		case len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\'):
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains common LLM settings used across features.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the shared LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}
