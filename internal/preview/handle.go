package preview

import (
	"io"
	"sync"

	"github.com/marco/formflow/internal/domain"
)

// DocumentHandle is a scoped handle over one document preview stream.
// Release is guaranteed on every exit path: closing it directly,
// supersession by a newer preview, or gateway dismissal. Close is
// idempotent, so double release is harmless.
type DocumentHandle struct {
	rc  io.ReadCloser
	req domain.PreviewRequest

	once     sync.Once
	closeErr error
	released bool
	mu       sync.Mutex
}

func newDocumentHandle(rc io.ReadCloser, req domain.PreviewRequest) *DocumentHandle {
	return &DocumentHandle{rc: rc, req: req}
}

// Read streams the document bytes.
func (h *DocumentHandle) Read(p []byte) (int, error) {
	h.mu.Lock()
	released := h.released
	h.mu.Unlock()
	if released {
		return 0, io.ErrClosedPipe
	}
	return h.rc.Read(p)
}

// Request returns the preview request this handle was fetched for.
func (h *DocumentHandle) Request() domain.PreviewRequest {
	return h.req
}

// Close releases the underlying stream. Safe to call multiple times.
func (h *DocumentHandle) Close() error {
	h.release()
	return h.closeErr
}

// Released reports whether the handle has been released.
func (h *DocumentHandle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

func (h *DocumentHandle) release() {
	h.once.Do(func() {
		h.mu.Lock()
		h.released = true
		h.mu.Unlock()
		h.closeErr = h.rc.Close()
	})
}
