package conversion

import (
	"bytes"
	"io"
	"sync"

	"filewell/internal/services"
)

// ResultHandle owns the bytes of one finished conversion until released.
type ResultHandle struct {
	mu          sync.Mutex
	data        []byte
	contentType string
	released    bool
}

func newResultHandle(data []byte, contentType string) *ResultHandle {
	return &ResultHandle{data: data, contentType: contentType}
}

// ContentType returns the resolved content type of the result.
func (h *ResultHandle) ContentType() string {
	return h.contentType
}

// Size returns the result length, or 0 once released.
func (h *ResultHandle) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.data)
}

// Bytes returns a copy of the result.
func (h *ResultHandle) Bytes() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, services.ErrRevoked
	}
	return bytes.Clone(h.data), nil
}

// WriteTo streams the result to w.
func (h *ResultHandle) WriteTo(w io.Writer) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return 0, services.ErrRevoked
	}
	n, err := w.Write(h.data)
	return int64(n), err
}

// Release drops the bytes. Further reads fail with services.ErrRevoked.
func (h *ResultHandle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
	h.data = nil
}

// Released reports whether Release has been called.
func (h *ResultHandle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}
