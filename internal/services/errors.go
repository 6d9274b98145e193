package services

import (
	"errors"
	"fmt"
	"strings"
)

// Conversion taxonomy markers. Every failure that reaches an item wraps
// exactly one of these.
var (
	ErrNoTargetSelected      = errors.New("no target format selected")
	ErrUnsupportedConversion = errors.New("unsupported conversion")
	ErrEngineInitFailed      = errors.New("encoder failed to initialize")
	ErrEncodeFailed          = errors.New("encode failed")
	ErrEngineCorrupted       = errors.New("encoder corrupted")
	ErrImageDecodeFailed     = errors.New("image decode failed")
)

// Store markers.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrRevoked           = errors.New("result revoked")
)

var kinds = []struct {
	marker error
	name   string
}{
	{ErrNoTargetSelected, "NoTargetSelected"},
	{ErrUnsupportedConversion, "UnsupportedConversion"},
	{ErrEngineInitFailed, "EngineInitFailed"},
	{ErrEngineCorrupted, "EngineCorrupted"},
	{ErrEncodeFailed, "EncodeFailed"},
	{ErrImageDecodeFailed, "ImageDecodeFailed"},
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrEncodeFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the taxonomy name of err, or "Unknown" when err carries no
// conversion marker. A nil error yields "".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			return k.name
		}
	}
	return "Unknown"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "conversion failure"
	}
	return strings.Join(parts, ": ")
}
