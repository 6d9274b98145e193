package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEngine(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEngine() error {
	c.Engine.Kind = strings.ToLower(strings.TrimSpace(c.Engine.Kind))
	if c.Engine.Kind == "" {
		c.Engine.Kind = defaultEngineKind
	}
	if c.Engine.PayloadURL == "" {
		if value, ok := os.LookupEnv("FILEWELL_ENGINE_URL"); ok {
			c.Engine.PayloadURL = value
		}
	}
	c.Engine.PayloadURL = strings.TrimSpace(c.Engine.PayloadURL)
	c.Engine.PayloadSHA256 = strings.ToLower(strings.TrimSpace(c.Engine.PayloadSHA256))
	if strings.TrimSpace(c.Engine.PayloadPath) == "" {
		c.Engine.PayloadPath = filepath.Join(c.Paths.CacheDir, "engine", defaultPayloadFileName)
	}
	var err error
	if c.Engine.PayloadPath, err = expandPath(c.Engine.PayloadPath); err != nil {
		return fmt.Errorf("engine.payload_path: %w", err)
	}
	c.Engine.FFmpegBinary = strings.TrimSpace(c.Engine.FFmpegBinary)
	if c.Engine.FFmpegBinary == "" {
		c.Engine.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Engine.DownloadTimeout <= 0 {
		c.Engine.DownloadTimeout = defaultDownloadTimeout
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
