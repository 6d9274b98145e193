package formats

import (
	"path/filepath"
	"slices"
	"strings"
)

// Category is the coarse media family of an item.
type Category string

const (
	CategoryImage   Category = "image"
	CategoryAudio   Category = "audio"
	CategoryVideo   Category = "video"
	CategoryUnknown Category = "unknown"
)

// FallbackMIME is returned for formats the registry does not know.
const FallbackMIME = "application/octet-stream"

// Preset holds the fixed encode parameters for one target format. Raster
// targets use Quality/Lossless/Speed; engine targets use Args, which are
// inserted between the input and the output on the engine command line.
type Preset struct {
	Quality  int
	Lossless bool
	Speed    int
	Args     []string
}

// Format is one registry row.
type Format struct {
	Key        string
	Label      string
	Category   Category
	MIME       string
	Extension  string
	MIMEHints  []string
	Extensions []string
	Preset     Preset
}

// Descriptor is what a UI needs to offer a target.
type Descriptor struct {
	Key   string
	Label string
}

// ImagePresets overrides the lossy raster quality factors.
type ImagePresets struct {
	JPEGQuality int
	WebPQuality int
	AVIFQuality int
	AVIFSpeed   int
}

// Registry answers format lookups. It is immutable once built.
type Registry struct {
	formats []Format
	byKey   map[string]int
	targets map[Category][]string
}

// New builds a registry from rows and per-category target lists. Target keys
// missing from rows are dropped.
func New(rows []Format, targets map[Category][]string) *Registry {
	r := &Registry{
		formats: make([]Format, len(rows)),
		byKey:   make(map[string]int, len(rows)),
		targets: make(map[Category][]string, len(targets)),
	}
	copy(r.formats, rows)
	for i, f := range r.formats {
		r.byKey[f.Key] = i
	}
	for cat, keys := range targets {
		for _, key := range keys {
			if _, ok := r.byKey[key]; ok {
				r.targets[cat] = append(r.targets[cat], key)
			}
		}
	}
	return r
}

// Default returns the built-in registry.
func Default() *Registry {
	return New(defaultFormats, defaultTargets)
}

// WithImagePresets returns a copy of r whose lossy raster presets use p.
// Zero fields keep the existing value.
func (r *Registry) WithImagePresets(p ImagePresets) *Registry {
	rows := make([]Format, len(r.formats))
	copy(rows, r.formats)
	for i := range rows {
		switch rows[i].Key {
		case "jpeg":
			if p.JPEGQuality > 0 {
				rows[i].Preset.Quality = p.JPEGQuality
			}
		case "webp":
			if p.WebPQuality > 0 {
				rows[i].Preset.Quality = p.WebPQuality
			}
		case "avif":
			if p.AVIFQuality > 0 {
				rows[i].Preset.Quality = p.AVIFQuality
			}
			if p.AVIFSpeed > 0 {
				rows[i].Preset.Speed = p.AVIFSpeed
			}
		}
	}
	return New(rows, r.targets)
}

// FormatsFor lists the targets offered for category, in registry order,
// excluding current when it is non-empty. Unknown categories get none.
func (r *Registry) FormatsFor(category Category, current string) []Descriptor {
	keys := r.targets[category]
	out := make([]Descriptor, 0, len(keys))
	for _, key := range keys {
		if current != "" && key == current {
			continue
		}
		f := r.formats[r.byKey[key]]
		out = append(out, Descriptor{Key: f.Key, Label: f.Label})
	}
	return out
}

// Supports reports whether key is a valid target for category.
func (r *Registry) Supports(category Category, key string) bool {
	return slices.Contains(r.targets[category], key)
}

// Lookup returns the registry row for key.
func (r *Registry) Lookup(key string) (Format, bool) {
	i, ok := r.byKey[key]
	if !ok {
		return Format{}, false
	}
	return r.formats[i], true
}

// MIMEFor returns the canonical content type for key, or FallbackMIME.
func (r *Registry) MIMEFor(key string) string {
	if f, ok := r.Lookup(key); ok && f.MIME != "" {
		return f.MIME
	}
	return FallbackMIME
}

// PresetFor returns the encode preset for key; unknown keys get the default.
func (r *Registry) PresetFor(key string) Preset {
	f, ok := r.Lookup(key)
	if !ok {
		return Preset{}
	}
	p := f.Preset
	p.Args = slices.Clone(p.Args)
	return p
}

// Extension returns the canonical file extension for key, without a dot.
// Unknown keys map to themselves.
func (r *Registry) Extension(key string) string {
	if f, ok := r.Lookup(key); ok && f.Extension != "" {
		return f.Extension
	}
	return key
}

// Formats returns every registry row in order.
func (r *Registry) Formats() []Format {
	return slices.Clone(r.formats)
}

// SuggestName replaces the extension of original with ext. Names without an
// extension get one appended.
func SuggestName(original, ext string) string {
	base := filepath.Base(original)
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "converted"
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}
