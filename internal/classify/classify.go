// Package classify derives a media category and a best-guess current format
// from an item's declared content type and file name.
package classify

import (
	"path/filepath"
	"strings"

	"filewell/internal/formats"
)

// Result is the outcome of classification. Current is empty when no format
// could be recognised.
type Result struct {
	Category formats.Category
	Current  string
}

// Classifier matches inputs against a registry's hint tables.
type Classifier struct {
	registry *formats.Registry
}

// New returns a classifier backed by registry.
func New(registry *formats.Registry) *Classifier {
	if registry == nil {
		registry = formats.Default()
	}
	return &Classifier{registry: registry}
}

var categoryPrefixes = []struct {
	prefix   string
	category formats.Category
}{
	{"image/", formats.CategoryImage},
	{"audio/", formats.CategoryAudio},
	{"video/", formats.CategoryVideo},
}

// Classify never fails. Content type is consulted before the file name.
func (c *Classifier) Classify(contentType, name string) Result {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	result := Result{Category: formats.CategoryUnknown}
	for _, p := range categoryPrefixes {
		if strings.HasPrefix(ct, p.prefix) {
			result.Category = p.category
			break
		}
	}
	result.Current = c.currentFormat(ct, name)
	return result
}

func (c *Classifier) currentFormat(ct, name string) string {
	rows := c.registry.Formats()
	if ct != "" {
		for _, f := range rows {
			for _, hint := range f.MIMEHints {
				if strings.Contains(ct, hint) {
					return f.Key
				}
			}
		}
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return ""
	}
	for _, f := range rows {
		for _, candidate := range f.Extensions {
			if candidate == ext {
				return f.Key
			}
		}
	}
	return ""
}

var defaultClassifier = New(nil)

// Classify uses the built-in registry.
func Classify(contentType, name string) Result {
	return defaultClassifier.Classify(contentType, name)
}
