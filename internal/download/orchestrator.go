package download

import (
	"context"
	"errors"
	"io"
	"path"

	"github.com/marco/formflow/internal/logger"
	"github.com/marco/formflow/internal/storage"
)

// ErrNoBatch is returned when a download is attempted without a batch
// identifier. No request is issued in that case.
var ErrNoBatch = errors.New("no batch available to download from")

// Fetcher performs the download round trips. Satisfied by
// backend.Client.
type Fetcher interface {
	DownloadFile(ctx context.Context, fileName, batchID string) (io.ReadCloser, error)
	DownloadArchive(ctx context.Context, batchID string) (io.ReadCloser, error)
}

// Orchestrator retrieves generated files and batch archives, persists
// them through an artifact sink, and reports progress via transient
// notifications. Missing batch identifiers fail fast: a visible error
// notice, zero network requests.
type Orchestrator struct {
	fetcher  Fetcher
	sink     storage.ArtifactSink
	notifier *Notifier
}

// NewOrchestrator creates an Orchestrator.
// Parameters:
//   - fetcher: backend download endpoints wrapper.
//   - sink: artifact destination.
//   - notifier: notification center for status notices.
// Returns:
//   - *Orchestrator: initialized orchestrator.
func NewOrchestrator(fetcher Fetcher, sink storage.ArtifactSink, notifier *Notifier) *Orchestrator {
	return &Orchestrator{fetcher: fetcher, sink: sink, notifier: notifier}
}

// DownloadOne retrieves a single generated file from a batch.
// Parameters:
//   - ctx: context for cancellation.
//   - fileName: generated file name.
//   - batchID: owning batch; empty fails fast with ErrNoBatch.
// Returns:
//   - string: location the file was stored at.
//   - error: ErrNoBatch, or the fetch/store failure.
func (o *Orchestrator) DownloadOne(ctx context.Context, fileName, batchID string) (string, error) {
	if batchID == "" {
		o.notifier.Push(NoticeError, "Cannot download %s: no batch has been processed", fileName)
		return "", ErrNoBatch
	}

	noticeID := o.notifier.Push(NoticeProgress, "Downloading %s...", fileName)

	rc, err := o.fetcher.DownloadFile(ctx, fileName, batchID)
	if err != nil {
		o.notifier.Update(noticeID, NoticeError, "Download of %s failed: %v", fileName, err)
		return "", err
	}
	defer rc.Close()

	location, err := o.sink.Store(ctx, path.Join(batchID, fileName), rc, "")
	if err != nil {
		o.notifier.Update(noticeID, NoticeError, "Saving %s failed: %v", fileName, err)
		return "", err
	}

	o.notifier.Update(noticeID, NoticeSuccess, "Downloaded %s", fileName)
	logger.CtxInfo(ctx, "Downloaded file: batch_id=%s, file=%s, location=%s", batchID, fileName, location)
	return location, nil
}

// DownloadAll retrieves the archive of a whole batch.
// Parameters:
//   - ctx: context for cancellation.
//   - batchID: batch to archive; empty fails fast with ErrNoBatch.
// Returns:
//   - string: location the archive was stored at.
//   - error: ErrNoBatch, or the fetch/store failure.
func (o *Orchestrator) DownloadAll(ctx context.Context, batchID string) (string, error) {
	if batchID == "" {
		o.notifier.Push(NoticeError, "Cannot download batch: no batch has been processed")
		return "", ErrNoBatch
	}

	archiveName := batchID + ".zip"
	noticeID := o.notifier.Push(NoticeProgress, "Downloading %s...", archiveName)

	rc, err := o.fetcher.DownloadArchive(ctx, batchID)
	if err != nil {
		o.notifier.Update(noticeID, NoticeError, "Download of %s failed: %v", archiveName, err)
		return "", err
	}
	defer rc.Close()

	location, err := o.sink.Store(ctx, archiveName, rc, "application/zip")
	if err != nil {
		o.notifier.Update(noticeID, NoticeError, "Saving %s failed: %v", archiveName, err)
		return "", err
	}

	o.notifier.Update(noticeID, NoticeSuccess, "Downloaded %s", archiveName)
	logger.CtxInfo(ctx, "Downloaded archive: batch_id=%s, location=%s", batchID, location)
	return location, nil
}

// Notices exposes the live notifications for polling surfaces.
func (o *Orchestrator) Notices() []Notice {
	return o.notifier.Active()
}
