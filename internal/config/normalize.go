package config

import (
	"fmt"
	"os"
	"strings"

	"reelsmith/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScript()
	c.normalizeMedia()
	c.normalizePexels()
	c.normalizeLLM()
	c.normalizeRanking()
	c.normalizeNarration()
	c.normalizeRender()
	c.normalizeDownload()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScript() {
	if c.Script.MaxParagraphs <= 0 {
		c.Script.MaxParagraphs = defaultMaxParagraphs
	}
	if c.Script.DescriptionsPerParagraph <= 0 {
		c.Script.DescriptionsPerParagraph = defaultDescriptions
	}
	raw := strings.ToLower(strings.TrimSpace(c.Script.Language))
	switch {
	case raw == "":
		c.Script.Language = defaultScriptLanguage
	case language.ToISO2(raw) != "":
		c.Script.Language = language.ToISO2(raw)
	default:
		c.Script.Language = raw
	}
}

func (c *Config) normalizeMedia() {
	c.Media.Orientation = strings.ToLower(strings.TrimSpace(c.Media.Orientation))
	if c.Media.Orientation == "" {
		c.Media.Orientation = defaultOrientation
	}
	c.Media.AssetSize = strings.ToLower(strings.TrimSpace(c.Media.AssetSize))
	if c.Media.AssetSize == "" {
		c.Media.AssetSize = defaultAssetSize
	}
	c.Media.VideoQuality = strings.ToLower(strings.TrimSpace(c.Media.VideoQuality))
	if c.Media.VideoQuality == "" {
		c.Media.VideoQuality = defaultVideoQuality
	}
	if c.Media.ImageCandidatesPerSlot <= 0 {
		c.Media.ImageCandidatesPerSlot = defaultImageCandidates
	}
	if c.Media.VideoCandidatesPerSlot <= 0 {
		c.Media.VideoCandidatesPerSlot = defaultVideoCandidates
	}
	if c.Media.MaxDescriptionCycles <= 0 {
		c.Media.MaxDescriptionCycles = defaultMaxDescriptionCycles
	}
	if c.Media.SelectConcurrency <= 0 {
		c.Media.SelectConcurrency = defaultSelectConcurrency
	}
}

func (c *Config) normalizePexels() {
	c.Pexels.APIKey = strings.TrimSpace(c.Pexels.APIKey)
	if c.Pexels.APIKey == "" {
		if value, ok := os.LookupEnv("PEXELS_API_KEY"); ok {
			c.Pexels.APIKey = strings.TrimSpace(value)
		}
	}
	c.Pexels.BaseURL = strings.TrimRight(strings.TrimSpace(c.Pexels.BaseURL), "/")
	if c.Pexels.BaseURL == "" {
		c.Pexels.BaseURL = defaultPexelsBaseURL
	}
	if c.Pexels.PerPage <= 0 || c.Pexels.PerPage > 80 {
		c.Pexels.PerPage = defaultPexelsPerPage
	}
	if c.Pexels.TimeoutSeconds <= 0 {
		c.Pexels.TimeoutSeconds = defaultPexelsTimeout
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeRanking() {
	if c.Ranking.MaxRetries <= 0 {
		c.Ranking.MaxRetries = defaultRankingMaxRetries
	}
	if c.Ranking.BackoffBaseMS < 0 {
		c.Ranking.BackoffBaseMS = 0
	}
	if c.Ranking.BackoffMaxMS <= 0 {
		c.Ranking.BackoffMaxMS = defaultRankingBackoffMaxMS
	}
	c.Ranking.Similarity = strings.ToLower(strings.TrimSpace(c.Ranking.Similarity))
	if c.Ranking.Similarity == "" {
		c.Ranking.Similarity = defaultRankingSimilarity
	}
}

func (c *Config) normalizeNarration() {
	command := make([]string, 0, len(c.Narration.Command))
	for _, arg := range c.Narration.Command {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			command = append(command, trimmed)
		}
	}
	if len(command) == 0 {
		command = defaultNarrationCommand()
	}
	c.Narration.Command = command
	if c.Narration.TimeoutSeconds <= 0 {
		c.Narration.TimeoutSeconds = defaultNarrationTimeout
	}
}

func (c *Config) normalizeRender() {
	if c.Render.FPS <= 0 {
		c.Render.FPS = defaultFPS
	}
	if c.Render.AudioSampleRate <= 0 {
		c.Render.AudioSampleRate = defaultAudioSampleRate
	}
	c.Render.VideoCodec = strings.TrimSpace(c.Render.VideoCodec)
	if c.Render.VideoCodec == "" {
		c.Render.VideoCodec = defaultVideoCodec
	}
	c.Render.Preset = strings.TrimSpace(c.Render.Preset)
	if c.Render.Preset == "" {
		c.Render.Preset = defaultPreset
	}
	if c.Render.CRF <= 0 {
		c.Render.CRF = defaultCRF
	}
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	c.Render.FFprobeBinary = strings.TrimSpace(c.Render.FFprobeBinary)
}

func (c *Config) normalizeDownload() {
	if c.Download.Concurrency <= 0 {
		c.Download.Concurrency = defaultDownloadConcurrency
	}
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultDownloadTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeout
	}
}
