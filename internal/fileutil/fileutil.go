package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// WriteVerified streams src into a temporary sibling of dst and renames it
// into place once the bytes on disk hash the same as the bytes read. A
// non-negative size must match the number of bytes written. dst is never
// left partially written.
func WriteVerified(dst string, src io.Reader, size int64, mode os.FileMode) error {
	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	srcHasher := sha256.New()
	written, err := io.Copy(tmp, io.TeeReader(src, srcHasher))
	if err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if size >= 0 && written != size {
		return fmt.Errorf("write size mismatch: expected %d bytes, wrote %d bytes", size, written)
	}

	dstHasher := sha256.New()
	check, err := os.Open(tmpPath)
	if err != nil {
		return err
	}
	_, err = io.Copy(dstHasher, check)
	_ = check.Close()
	if err != nil {
		return err
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		return fmt.Errorf("write hash mismatch: file corrupted during write")
	}

	if err := os.Chmod(tmpPath, mode); err != nil {
		return err
	}
	return os.Rename(tmpPath, dst)
}

// UniquePath returns dir/name, or dir/"stem (N).ext" for the first N that
// does not exist yet.
func UniquePath(dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; n < 10000; n++ {
		_, err := os.Lstat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
	}
	return "", fmt.Errorf("no free file name for %q in %s", name, dir)
}
