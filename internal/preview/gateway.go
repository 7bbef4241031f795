package preview

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/marco/formflow/internal/domain"
	"github.com/marco/formflow/internal/logger"
)

// ErrStale marks a preview result that arrived after its target was
// superseded. The result has already been discarded and must never be
// rendered.
var ErrStale = errors.New("preview superseded by a newer request")

// Fetcher performs the preview round trips. Satisfied by
// backend.Client. Implementations must defeat caching on every fetch.
type Fetcher interface {
	FetchDocument(ctx context.Context, req domain.PreviewRequest) (io.ReadCloser, error)
	FetchEmail(ctx context.Context, req domain.PreviewRequest) (*domain.EmailPreview, error)
}

// Gateway fetches artifact previews with a freshness guarantee: when
// the preview target changes before an earlier fetch resolves, the
// late result is discarded, never delivered. Document previews hand
// out scoped handles; the previously delivered handle is released as
// soon as a newer preview supersedes it or the consumer dismisses the
// preview.
type Gateway struct {
	fetcher Fetcher

	mu     sync.Mutex
	seq    uint64
	latest uint64
	active *DocumentHandle
}

// NewGateway creates a Gateway over the given fetcher.
func NewGateway(fetcher Fetcher) *Gateway {
	return &Gateway{fetcher: fetcher}
}

// next issues a fresh request token and marks it as the latest.
func (g *Gateway) next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	g.latest = g.seq
	return g.seq
}

// Document fetches a binary document preview for either provenance.
// Parameters:
//   - ctx: context for cancellation.
//   - req: preview request; kind must be document.
// Returns:
//   - *DocumentHandle: scoped handle over the document stream; owned
//     by the gateway until superseded, dismissed, or closed.
//   - error: ErrStale if a newer preview was requested meanwhile,
//     request or fetch errors otherwise.
func (g *Gateway) Document(ctx context.Context, req domain.PreviewRequest) (*DocumentHandle, error) {
	if req.Kind != domain.PreviewKindDocument {
		return nil, errors.New("document preview requires kind document")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	token := g.next()
	rc, err := g.fetcher.FetchDocument(ctx, req)

	g.mu.Lock()
	defer g.mu.Unlock()

	if token != g.latest {
		// Superseded while in flight. Release the stream without
		// delivering it.
		if rc != nil {
			rc.Close()
		}
		logger.CtxDebug(ctx, "Discarded stale document preview: target=%s", req.Target())
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}

	handle := newDocumentHandle(rc, req)
	if g.active != nil {
		g.active.release()
	}
	g.active = handle
	return handle, nil
}

// Email fetches a structured email preview for either provenance.
// Parameters:
//   - ctx: context for cancellation.
//   - req: preview request; kind must be email.
// Returns:
//   - *domain.EmailPreview: rendered email record.
//   - error: ErrStale if superseded, request or fetch errors otherwise.
func (g *Gateway) Email(ctx context.Context, req domain.PreviewRequest) (*domain.EmailPreview, error) {
	if req.Kind != domain.PreviewKindEmail {
		return nil, errors.New("email preview requires kind email")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	token := g.next()
	email, err := g.fetcher.FetchEmail(ctx, req)

	g.mu.Lock()
	defer g.mu.Unlock()

	if token != g.latest {
		logger.CtxDebug(ctx, "Discarded stale email preview: target=%s", req.Target())
		return nil, ErrStale
	}
	return email, err
}

// Fallback builds the best-effort email record rendered when a preview
// fails persistently: the little identity that is known instead of an
// empty panel.
// Parameters:
//   - req: the failed preview request.
// Returns:
//   - *domain.EmailPreview: metadata-only record with Fallback set.
func (g *Gateway) Fallback(req domain.PreviewRequest) *domain.EmailPreview {
	subject := req.Target()
	if subject == "" {
		subject = "(unavailable)"
	}
	preview := &domain.EmailPreview{
		Subject:  subject,
		Body:     "Preview is currently unavailable.",
		Fallback: true,
	}
	if req.Provenance == domain.ProvenanceGenerated {
		preview.Date = ""
		preview.Body = "Preview is currently unavailable for this generated message."
	}
	return preview
}

// Dismiss releases the currently delivered document handle, if any.
// Called when the preview consumer goes away.
func (g *Gateway) Dismiss() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil {
		g.active.release()
		g.active = nil
	}
	// Invalidate any fetch still in flight.
	g.seq++
	g.latest = g.seq
}
