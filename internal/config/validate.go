package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateImage(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEngine() error {
	switch c.Engine.Kind {
	case EngineFFmpeg:
		return nil
	case EngineWASM:
		if c.Engine.PayloadURL == "" {
			if _, err := os.Stat(c.Engine.PayloadPath); err != nil {
				return fmt.Errorf("engine.payload_url is required when %s does not exist. Set FILEWELL_ENGINE_URL or edit the config", c.Engine.PayloadPath)
			}
		}
		if c.Engine.PayloadSHA256 != "" {
			raw, err := hex.DecodeString(c.Engine.PayloadSHA256)
			if err != nil || len(raw) != 32 {
				return errors.New("engine.payload_sha256 must be a hex-encoded sha256 digest")
			}
		}
		return nil
	default:
		return fmt.Errorf("engine.kind: unsupported value %q (want %q or %q)", c.Engine.Kind, EngineWASM, EngineFFmpeg)
	}
}

func (c *Config) validateImage() error {
	for name, q := range map[string]int{
		"image.jpeg_quality": c.Image.JPEGQuality,
		"image.webp_quality": c.Image.WebPQuality,
		"image.avif_quality": c.Image.AVIFQuality,
	} {
		if q < 1 || q > 100 {
			return fmt.Errorf("%s must be between 1 and 100", name)
		}
	}
	if c.Image.AVIFSpeed < 0 || c.Image.AVIFSpeed > 10 {
		return errors.New("image.avif_speed must be between 0 and 10")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
