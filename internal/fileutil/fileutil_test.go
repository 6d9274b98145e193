package fileutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteVerifiedSetsMode(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "dst.bin")

	if err := WriteVerified(dst, strings.NewReader("data"), -1, 0o755); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Fatalf("expected executable bits, got %o", info.Mode().Perm())
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "data" {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestWriteVerifiedReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.webp")
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	payload := bytes.Repeat([]byte{0xAB}, 4096)
	if err := WriteVerified(dst, bytes.NewReader(payload), int64(len(payload)), 0o644); err != nil {
		t.Fatalf("WriteVerified: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("content mismatch: got %d bytes", len(got))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the destination file, found %d entries", len(entries))
	}
}

func TestWriteVerifiedSizeMismatchLeavesDestination(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.mp3")
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := WriteVerified(dst, strings.NewReader("short"), 100, 0o644)
	if err == nil || !strings.Contains(err.Error(), "size mismatch") {
		t.Fatalf("expected size mismatch error, got %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "old" {
		t.Fatalf("destination modified on failure: %q", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temporary file left behind: %d entries", len(entries))
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()

	first, err := UniquePath(dir, "photo.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if first != filepath.Join(dir, "photo.jpg") {
		t.Fatalf("unexpected first path %q", first)
	}
	if err := os.WriteFile(first, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	second, err := UniquePath(dir, "photo.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if second != filepath.Join(dir, "photo (1).jpg") {
		t.Fatalf("unexpected second path %q", second)
	}
	if err := os.WriteFile(second, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	third, _ := UniquePath(dir, "photo.jpg")
	if third != filepath.Join(dir, "photo (2).jpg") {
		t.Fatalf("unexpected third path %q", third)
	}
}
