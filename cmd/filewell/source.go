package main

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"filewell/internal/config"
	"filewell/internal/dispatch"
)

// readSource loads path into memory and resolves its content type from the
// extension, falling back to content sniffing.
func readSource(path string) (dispatch.Source, error) {
	expanded, err := config.ExpandPath(strings.TrimSpace(path))
	if err != nil {
		return dispatch.Source{}, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return dispatch.Source{}, fmt.Errorf("inspect %q: %w", path, err)
	}
	if info.IsDir() {
		return dispatch.Source{}, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return dispatch.Source{}, fmt.Errorf("read %q: %w", path, err)
	}
	return dispatch.Source{
		Name:        filepath.Base(expanded),
		ContentType: detectContentType(expanded, data),
		Data:        data,
	}, nil
}

func detectContentType(name string, data []byte) string {
	if ext := filepath.Ext(name); ext != "" {
		if byExt := mime.TypeByExtension(strings.ToLower(ext)); byExt != "" {
			return stripParams(byExt)
		}
	}
	return stripParams(http.DetectContentType(data))
}

func stripParams(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return mediaType
}
