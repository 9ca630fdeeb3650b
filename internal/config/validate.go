package config

import (
	"errors"
	"fmt"
	"slices"

	"reelsmith/internal/language"
)

var (
	validOrientations = []string{"landscape", "vertical", "square"}
	validAssetSizes   = []string{"small", "medium", "large"}
	validSimilarity   = []string{"off", "llm", "lexical"}
)

// Validate ensures the configuration is usable. Credentials are not required
// here because offline commands (plan, config, runs) never reach the network;
// the pipeline checks them when it builds its clients.
func (c *Config) Validate() error {
	if err := c.validateScript(); err != nil {
		return err
	}
	if err := c.validateTiming(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateRanking(); err != nil {
		return err
	}
	return c.validateRender()
}

func (c *Config) validateScript() error {
	if c.Script.MinWords < 0 || c.Script.MaxWords < 0 {
		return errors.New("script.min_words and script.max_words must be >= 0")
	}
	if c.Script.MaxWords > 0 && c.Script.MinWords > c.Script.MaxWords {
		return errors.New("script.min_words must not exceed script.max_words")
	}
	if language.ToISO2(c.Script.Language) == "" {
		return fmt.Errorf("script.language %q is not a recognized language", c.Script.Language)
	}
	return nil
}

func (c *Config) validateTiming() error {
	t := c.Timing
	if t.SilenceSeconds < 0 {
		return errors.New("timing.silence_seconds must be >= 0")
	}
	if t.CrossfadeSeconds < 0 {
		return errors.New("timing.crossfade_seconds must be >= 0")
	}
	if t.ImageShare < 0 || t.ImageShare > 1 {
		return errors.New("timing.image_share must be between 0 and 1")
	}
	if t.VideoShare < 0 || t.VideoShare > 1 {
		return errors.New("timing.video_share must be between 0 and 1")
	}
	if t.ImageShare+t.VideoShare > 1.0001 {
		return errors.New("timing.image_share + timing.video_share must not exceed 1")
	}
	if t.MinImages < 0 || t.MinVideos < 0 {
		return errors.New("timing.min_images and timing.min_videos must be >= 0")
	}
	if err := ensurePositiveFloats(map[string]float64{
		"timing.min_image_seconds": t.MinImageSeconds,
		"timing.max_image_seconds": t.MaxImageSeconds,
		"timing.min_video_seconds": t.MinVideoSeconds,
		"timing.max_video_seconds": t.MaxVideoSeconds,
	}); err != nil {
		return err
	}
	if t.MinImageSeconds > t.MaxImageSeconds {
		return errors.New("timing.min_image_seconds must not exceed timing.max_image_seconds")
	}
	if t.MinVideoSeconds > t.MaxVideoSeconds {
		return errors.New("timing.min_video_seconds must not exceed timing.max_video_seconds")
	}
	if t.CrossfadeSeconds >= t.MinImageSeconds || t.CrossfadeSeconds >= t.MinVideoSeconds {
		return errors.New("timing.crossfade_seconds must be shorter than the minimum clip durations")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if !slices.Contains(validOrientations, c.Media.Orientation) {
		return fmt.Errorf("media.orientation must be one of %v", validOrientations)
	}
	if !slices.Contains(validAssetSizes, c.Media.AssetSize) {
		return fmt.Errorf("media.asset_size must be one of %v", validAssetSizes)
	}
	return nil
}

func (c *Config) validateRanking() error {
	if !slices.Contains(validSimilarity, c.Ranking.Similarity) {
		return fmt.Errorf("ranking.similarity must be one of %v", validSimilarity)
	}
	if c.Ranking.BackoffMaxMS < c.Ranking.BackoffBaseMS {
		return errors.New("ranking.backoff_max_ms must be >= ranking.backoff_base_ms")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.FPS > 120 {
		return errors.New("render.fps must not exceed 120")
	}
	if c.Render.CRF > 51 {
		return errors.New("render.crf must be between 1 and 51")
	}
	return ensurePositiveMap(map[string]int{
		"render.fps":               c.Render.FPS,
		"render.audio_sample_rate": c.Render.AudioSampleRate,
		"download.concurrency":     c.Download.Concurrency,
		"download.timeout_seconds": c.Download.TimeoutSeconds,
		"pexels.timeout_seconds":   c.Pexels.TimeoutSeconds,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensurePositiveFloats(values map[string]float64) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
