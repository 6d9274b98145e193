package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"filewell/internal/testsupport"
)

func TestConvertImageWritesResult(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.writeInput(t, "photo.png", testsupport.PNG(t, 32, 16))

	out, _, err := runCLI(t, []string{"convert", input, "--to", "jpeg"}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	requireContains(t, out, "done")

	data, err := os.ReadFile(filepath.Join(env.cfg.Paths.OutputDir, "photo.jpg"))
	if err != nil {
		t.Fatalf("expected converted file: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Fatalf("expected JPEG signature, got % x", data[:4])
	}
}

func TestConvertDoesNotOverwriteExistingOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.writeInput(t, "photo.png", testsupport.PNG(t, 8, 8))
	outDir := filepath.Join(env.baseDir, "custom-out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "photo.webp"), []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := runCLI(t, []string{"convert", input, "--to", "webp", "--out", outDir}, env.configPath); err != nil {
		t.Fatalf("convert: %v", err)
	}
	kept, _ := os.ReadFile(filepath.Join(outDir, "photo.webp"))
	if string(kept) != "keep" {
		t.Fatalf("existing output was overwritten")
	}
	if _, err := os.Stat(filepath.Join(outDir, "photo (1).webp")); err != nil {
		t.Fatalf("expected numbered output: %v", err)
	}
}

func TestConvertVideoThroughEngine(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFFmpegScript(testsupport.CopyFFmpegScript))
	payload := mp4Header()
	input := env.writeInput(t, "clip.mp4", payload)

	out, _, err := runCLI(t, []string{"convert", input, "--to", "webm", "--stats"}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	requireContains(t, out, "filewell_conversions_total")
	requireContains(t, out, "filewell_engine_loads_total")

	data, err := os.ReadFile(filepath.Join(env.cfg.Paths.OutputDir, "clip.webm"))
	if err != nil {
		t.Fatalf("expected converted file: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("expected engine output to match copy script result")
	}
}

func TestConvertUnsupportedReportsFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.writeInput(t, "notes.txt", []byte("plain text"))

	out, _, err := runCLI(t, []string{"convert", input, "--to", "png"}, env.configPath)
	if err == nil {
		t.Fatal("expected conversion failure")
	}
	requireContains(t, err.Error(), "1 of 1 conversions failed")
	requireContains(t, out, "UnsupportedConversion")

	entries, _ := os.ReadDir(env.cfg.Paths.OutputDir)
	if len(entries) != 0 {
		t.Fatalf("expected no output files, found %d", len(entries))
	}
}

func TestConvertEncodeFailureSuggestsRetry(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFFmpegScript(testsupport.FailingFFmpegScript))
	input := env.writeInput(t, "clip.mp4", mp4Header())

	out, _, err := runCLI(t, []string{"convert", input, "--to", "mp3"}, env.configPath)
	if err == nil {
		t.Fatal("expected conversion failure")
	}
	requireContains(t, out, "EncodeFailed")
	requireContains(t, out, "retrying may succeed")
}

func TestConvertRequiresTarget(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.writeInput(t, "photo.png", testsupport.PNG(t, 4, 4))
	if _, _, err := runCLI(t, []string{"convert", input}, env.configPath); err == nil {
		t.Fatal("expected missing --to to fail")
	}
}

func TestFormatsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	png := env.writeInput(t, "photo.png", testsupport.PNG(t, 4, 4))
	txt := env.writeInput(t, "notes.txt", []byte("hello"))

	out, _, err := runCLI(t, []string{"formats", png, txt}, env.configPath)
	if err != nil {
		t.Fatalf("formats: %v", err)
	}
	requireContains(t, out, "photo.png")
	requireContains(t, out, "jpeg, webp")
	requireContains(t, out, "Image")
	requireContains(t, out, "none")
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFFmpegScript("#!/bin/sh\nexit 0\n"))

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "== Readiness ==")
	requireContains(t, out, "FFmpeg:")
	requireContains(t, out, "[OK]")
}

func TestStatusCommandReportsMissingEngine(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Engine.FFmpegBinary = filepath.Join(env.baseDir, "missing-ffmpeg")
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err == nil {
		t.Fatal("expected status to fail")
	}
	requireContains(t, out, "[ERROR]")
}

func TestDetectContentType(t *testing.T) {
	if got := detectContentType("photo.png", []byte("x")); got != "image/png" {
		t.Fatalf("expected image/png, got %q", got)
	}
	if got := detectContentType("clip", mp4Header()); got != "video/mp4" {
		t.Fatalf("expected sniffed video/mp4, got %q", got)
	}
	if got := detectContentType("notes", []byte("hello")); got != "text/plain" {
		t.Fatalf("expected text/plain without params, got %q", got)
	}
}
