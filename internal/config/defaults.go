package config

const (
	defaultCacheDir         = "~/.cache/filewell"
	defaultOutputDir        = "~/Downloads/filewell"
	defaultLogDir           = "~/.local/share/filewell/logs"
	defaultEngineKind       = EngineFFmpeg
	defaultFFmpegBinary     = "ffmpeg"
	defaultDownloadTimeout  = 300
	defaultPayloadFileName  = "ffmpeg.wasm"
	defaultMemoryLimitPages = 16384 // 1 GiB
	defaultJPEGQuality      = 92
	defaultWebPQuality      = 90
	defaultAVIFQuality      = 60
	defaultAVIFSpeed        = 8
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Engine kinds.
const (
	EngineWASM   = "wasm"
	EngineFFmpeg = "ffmpeg"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir:  defaultCacheDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Engine: Engine{
			Kind:             defaultEngineKind,
			FFmpegBinary:     defaultFFmpegBinary,
			DownloadTimeout:  defaultDownloadTimeout,
			MemoryLimitPages: defaultMemoryLimitPages,
		},
		Image: Image{
			JPEGQuality: defaultJPEGQuality,
			WebPQuality: defaultWebPQuality,
			AVIFQuality: defaultAVIFQuality,
			AVIFSpeed:   defaultAVIFSpeed,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
