package config

const (
	defaultConfigPath           = "~/.config/reelsmith/config.toml"
	defaultWorkDir              = "~/.local/share/reelsmith/videos"
	defaultLogDir               = "~/.local/share/reelsmith/logs"
	defaultStateDir             = "~/.local/share/reelsmith/state"
	defaultMaxParagraphs        = 6
	defaultMinWords             = 80
	defaultMaxWords             = 120
	defaultDescriptions         = 10
	defaultScriptLanguage       = "en"
	defaultSilenceSeconds       = 2.0
	defaultCrossfadeSeconds     = 1.0
	defaultImageShare           = 0.4
	defaultVideoShare           = 0.6
	defaultMinImages            = 2
	defaultMinVideos            = 2
	defaultMinImageSeconds      = 3.0
	defaultMaxImageSeconds      = 5.0
	defaultMinVideoSeconds      = 4.0
	defaultMaxVideoSeconds      = 8.0
	defaultOrientation          = "landscape"
	defaultAssetSize            = "medium"
	defaultVideoQuality         = "hd"
	defaultImageCandidates      = 1
	defaultVideoCandidates      = 5
	defaultMaxDescriptionCycles = 3
	defaultSelectConcurrency    = 1
	defaultPexelsBaseURL        = "https://api.pexels.com"
	defaultPexelsPerPage        = 80
	defaultPexelsTimeout        = 15
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "google/gemini-3-flash-preview"
	defaultLLMReferer           = "https://github.com/reelsmith/reelsmith"
	defaultLLMTitle             = "reelsmith"
	defaultLLMTimeoutSeconds    = 60
	defaultRankingMaxRetries    = 5
	defaultRankingBackoffBaseMS = 500
	defaultRankingBackoffMaxMS  = 8000
	defaultRankingSimilarity    = "off"
	defaultNarrationTimeout     = 300
	defaultFPS                  = 30
	defaultAudioSampleRate      = 44100
	defaultVideoCodec           = "libx264"
	defaultPreset               = "medium"
	defaultCRF                  = 20
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultDownloadConcurrency  = 4
	defaultDownloadTimeout      = 120
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultNtfyTimeout          = 10
)

func defaultNarrationCommand() []string {
	return []string{"piper", "--model", "en_US-lessac-medium.onnx", "--output_file", "{output}"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Script: Script{
			MaxParagraphs:            defaultMaxParagraphs,
			MinWords:                 defaultMinWords,
			MaxWords:                 defaultMaxWords,
			DescriptionsPerParagraph: defaultDescriptions,
			Language:                 defaultScriptLanguage,
		},
		Timing: Timing{
			SilenceSeconds:   defaultSilenceSeconds,
			CrossfadeSeconds: defaultCrossfadeSeconds,
			ImageShare:       defaultImageShare,
			VideoShare:       defaultVideoShare,
			MinImages:        defaultMinImages,
			MinVideos:        defaultMinVideos,
			MinImageSeconds:  defaultMinImageSeconds,
			MaxImageSeconds:  defaultMaxImageSeconds,
			MinVideoSeconds:  defaultMinVideoSeconds,
			MaxVideoSeconds:  defaultMaxVideoSeconds,
		},
		Media: Media{
			Orientation:            defaultOrientation,
			AssetSize:              defaultAssetSize,
			VideoQuality:           defaultVideoQuality,
			ImageCandidatesPerSlot: defaultImageCandidates,
			VideoCandidatesPerSlot: defaultVideoCandidates,
			MaxDescriptionCycles:   defaultMaxDescriptionCycles,
			SelectConcurrency:      defaultSelectConcurrency,
		},
		Pexels: Pexels{
			BaseURL:        defaultPexelsBaseURL,
			PerPage:        defaultPexelsPerPage,
			TimeoutSeconds: defaultPexelsTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Ranking: Ranking{
			MaxRetries:    defaultRankingMaxRetries,
			BackoffBaseMS: defaultRankingBackoffBaseMS,
			BackoffMaxMS:  defaultRankingBackoffMaxMS,
			Similarity:    defaultRankingSimilarity,
		},
		Narration: Narration{
			Command:        defaultNarrationCommand(),
			TimeoutSeconds: defaultNarrationTimeout,
		},
		Render: Render{
			FPS:             defaultFPS,
			AudioSampleRate: defaultAudioSampleRate,
			VideoCodec:      defaultVideoCodec,
			Preset:          defaultPreset,
			CRF:             defaultCRF,
			FFmpegBinary:    defaultFFmpegBinary,
			FFprobeBinary:   defaultFFprobeBinary,
		},
		Download: Download{
			Concurrency:    defaultDownloadConcurrency,
			TimeoutSeconds: defaultDownloadTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
	}
}
