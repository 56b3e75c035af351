package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// TradeArchiveStore provides read access to trades for archival. The archiver
// only needs the time-ranged query, not the full domain.TradeStore.
type TradeArchiveStore interface {
	// ListBefore returns all trades with a block time strictly before the
	// given cutoff time.
	ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)
}

// multipartWriter is the optional fast path for large uploads. The package's
// own Writer implements it; other BlobWriter implementations fall back to a
// single Put.
type multipartWriter interface {
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// multipartThreshold is the payload size above which archive uploads switch to
// multipart.
const multipartThreshold = 64 * 1024 * 1024

// ArchiveImpl implements domain.Archiver by querying the trade store for
// aged records, serializing them to JSONL, and uploading the result to S3.
//
// Deletion of the archived trades from the primary store is intentionally
// NOT performed here -- that is a separate, explicit step to be executed
// after the archive has been verified.
type ArchiveImpl struct {
	writer domain.BlobWriter
	trades TradeArchiveStore
	audit  domain.AuditStore
	now    func() time.Time
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, trades TradeArchiveStore, audit domain.AuditStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		trades: trades,
		audit:  audit,
		now:    time.Now,
	}
}

// ArchiveTrades queries all trades before the cutoff, serializes them to
// JSONL, and uploads the file to S3 at archive/trades/YYYY-MM.jsonl. The
// archival event is recorded in the audit log and the count of archived
// records is returned.
func (a *ArchiveImpl) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := fmt.Sprintf("archive/trades/%s.jsonl", before.Format("2006-01"))
	if err := a.upload(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	count := int64(len(trades))

	if err := a.audit.Log(ctx, "archive.trades", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive trades audit log: %w", err)
	}

	return count, nil
}

// ExportPositions writes a snapshot of a wallet's positions to S3 as JSONL at
// exports/positions/{wallet}/{timestamp}.jsonl and returns the object path.
func (a *ArchiveImpl) ExportPositions(ctx context.Context, wallet string, positions []domain.Position) (string, error) {
	buf, err := marshalJSONL(positions)
	if err != nil {
		return "", fmt.Errorf("s3blob: export positions marshal: %w", err)
	}

	path := fmt.Sprintf("exports/positions/%s/%s.jsonl", wallet, a.now().UTC().Format("20060102T150405Z"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return "", fmt.Errorf("s3blob: export positions upload: %w", err)
	}

	if err := a.audit.Log(ctx, "export.positions", map[string]any{
		"path":   path,
		"wallet": wallet,
		"count":  len(positions),
	}); err != nil {
		return path, fmt.Errorf("s3blob: export positions audit log: %w", err)
	}

	return path, nil
}

// upload writes the payload in one shot, switching to a multipart upload for
// large archives when the writer supports it.
func (a *ArchiveImpl) upload(ctx context.Context, path string, buf []byte) error {
	if mw, ok := a.writer.(multipartWriter); ok && int64(len(buf)) > multipartThreshold {
		return mw.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	}
	return a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
