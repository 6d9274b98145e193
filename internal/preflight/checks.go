package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"filewell/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFFmpeg verifies that the process engine's binary resolves.
func CheckFFmpeg(configured string) Result {
	const name = "FFmpeg"
	status := deps.CheckBinaries([]deps.Requirement{{
		Name:        name,
		Command:     deps.ResolveFFmpeg(configured),
		Description: "Required for audio and video conversion",
	}})[0]
	if !status.Available {
		return Result{Name: name, Detail: status.Detail}
	}
	return Result{Name: name, Passed: true, Detail: status.Command}
}

// CheckPayload verifies that the wasm engine payload is cached on disk or
// that its download URL answers. It uses a 10-second timeout and a single
// HEAD request.
func CheckPayload(ctx context.Context, path, url string) Result {
	const name = "Engine payload"

	if info, err := os.Stat(path); err == nil && !info.IsDir() && info.Size() > 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (cached)", path)}
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return Result{Name: name, Detail: "not cached and no payload_url configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, url, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid payload url (%v)", err)}
	}
	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("payload url returned %d", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "downloadable on first use"}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "payload url timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "payload url unreachable (timeout)"
	}
	return fmt.Sprintf("payload url unreachable (%v)", err)
}
