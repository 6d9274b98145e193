// Package payload fetches the engine binary and caches it on disk.
package payload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"filewell/internal/logging"
)

const (
	defaultDownloadTimeout = 5 * time.Minute
	lockRetryDelay         = 100 * time.Millisecond
	maxPayloadBytes        = 512 << 20
)

// ErrChecksumMismatch is returned when the payload digest does not match.
var ErrChecksumMismatch = errors.New("payload checksum mismatch")

// Cache resolves the engine payload from a local file, downloading it when
// missing. Concurrent processes coordinate through a lock file next to path.
type Cache struct {
	path   string
	url    string
	sha256 string
	client *http.Client
	logger *slog.Logger
}

// NewCache creates a cache for path. url may be empty when the payload is
// provisioned out of band; sum may be empty to skip verification.
func NewCache(path, url, sum string, timeout time.Duration, logger *slog.Logger) *Cache {
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	return &Cache{
		path:   strings.TrimSpace(path),
		url:    strings.TrimSpace(url),
		sha256: strings.ToLower(strings.TrimSpace(sum)),
		client: &http.Client{Timeout: timeout},
		logger: logging.NewComponentLogger(logger, "payload"),
	}
}

// Path returns the on-disk location of the cached payload.
func (c *Cache) Path() string { return c.path }

// Fetch returns the payload bytes, downloading them first if the cached copy
// is missing or fails verification.
func (c *Cache) Fetch(ctx context.Context) ([]byte, error) {
	if c.path == "" {
		return nil, errors.New("payload path not configured")
	}
	if data, err := c.readCached(); err == nil {
		return data, nil
	} else if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, ErrChecksumMismatch) {
		return nil, err
	}
	if c.url == "" {
		return nil, fmt.Errorf("payload %s missing and no download url configured", c.path)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return nil, fmt.Errorf("create payload directory: %w", err)
	}
	lock := flock.New(c.path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock payload cache: %w", err)
	}
	if !locked {
		return nil, errors.New("lock payload cache: not acquired")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			c.logger.Warn("payload lock release failed", logging.Args(logging.Error(err))...)
		}
	}()

	// Another process may have finished the download while we waited.
	if data, err := c.readCached(); err == nil {
		return data, nil
	}
	return c.download(ctx)
}

func (c *Cache) readCached() ([]byte, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	if err := c.verify(data); err != nil {
		c.logger.Warn("cached payload failed verification", logging.Args(
			logging.String("path", c.path),
			logging.String(logging.FieldEventType, "payload_checksum_mismatch"),
			logging.String(logging.FieldErrorHint, "the payload will be downloaded again"),
		)...)
		return nil, err
	}
	return data, nil
}

func (c *Cache) verify(data []byte) error {
	if c.sha256 == "" {
		return nil
	}
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != c.sha256 {
		return fmt.Errorf("%w: got %s want %s", ErrChecksumMismatch, got, c.sha256)
	}
	return nil
}

func (c *Cache) download(ctx context.Context) ([]byte, error) {
	c.logger.Info("downloading engine payload", logging.Args(
		logging.String("url", c.url),
		logging.String(logging.FieldEventType, "payload_download"),
	)...)
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("download payload: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download payload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download payload: unexpected status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(resp.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download payload: %w", err)
	}
	if n > maxPayloadBytes {
		return nil, fmt.Errorf("download payload: exceeds %d bytes", maxPayloadBytes)
	}
	data := buf.Bytes()
	if err := c.verify(data); err != nil {
		return nil, err
	}

	tempPath := c.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write payload temp file: %w", err)
	}
	if err := os.Rename(tempPath, c.path); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("replace payload file: %w", err)
	}

	c.logger.Info("engine payload cached", logging.Args(
		logging.String("path", c.path),
		logging.Int("bytes", len(data)),
		logging.Duration("elapsed", time.Since(started)),
	)...)
	return data, nil
}
