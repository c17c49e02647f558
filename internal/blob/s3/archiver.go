package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// TradeArchiveStore is the narrow query surface the archiver needs from the
// trade store: closed trades older than a cutoff. The Postgres store
// satisfies it with a time-ranged query.
type TradeArchiveStore interface {
	ListClosedBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)
}

// Archiver ships closed trades and audit history to object storage as
// JSONL, one file per archival cut. Rows are never deleted from the primary
// store here; pruning is a separate explicit step taken after the archive
// has been verified.
type Archiver struct {
	writer *Writer
	reader *Reader
	trades TradeArchiveStore
	audit  domain.AuditStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer *Writer, reader *Reader, trades TradeArchiveStore, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer: writer,
		reader: reader,
		trades: trades,
		audit:  audit,
	}
}

// ArchiveTrades uploads every closed trade older than the cutoff to
// archive/trades/YYYY-MM.jsonl and verifies the object landed. Returns the
// number of trades archived.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListClosedBefore(ctx, before)
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
	key := archiveKey("trades", before)
	if err := a.upload(ctx, key, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades: %w", err)
	}

	count := int64(len(trades))
	if err := a.audit.Log(ctx, "archive.trades", "system", key, map[string]any{
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive trades audit log: %w", err)
	}
	return count, nil
}

// ArchiveAudit uploads the audit trail up to the cutoff to
// archive/audit/YYYY-MM.jsonl. The audit export pages through the store so
// an unbounded trail does not load at once.
func (a *Archiver) ArchiveAudit(ctx context.Context, before time.Time) (int64, error) {
	const page = 1000

	var entries []domain.AuditEntry
	for offset := 0; ; offset += page {
		batch, err := a.audit.List(ctx, domain.ListOpts{
			Limit:  page,
			Offset: offset,
			Until:  &before,
		})
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
		}
		entries = append(entries, batch...)
		if len(batch) < page {
			break
		}
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit marshal: %w", err)
	}
	key := archiveKey("audit", before)
	if err := a.upload(ctx, key, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive audit: %w", err)
	}
	return int64(len(entries)), nil
}

// Prune deletes archive objects older than the retention window. The
// primary store is untouched.
func (a *Archiver) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	infos, err := a.reader.List(ctx, "archive/")
	if err != nil {
		return 0, fmt.Errorf("s3blob: prune list: %w", err)
	}

	pruned := 0
	for _, info := range infos {
		if info.LastModified.IsZero() || !info.LastModified.Before(olderThan) {
			continue
		}
		if err := a.reader.Delete(ctx, info.Key); err != nil {
			return pruned, fmt.Errorf("s3blob: prune: %w", err)
		}
		pruned++
	}
	return pruned, nil
}

// upload writes the object and confirms it exists before reporting success.
func (a *Archiver) upload(ctx context.Context, key string, buf []byte) error {
	if err := a.writer.Put(ctx, key, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	ok, err := a.reader.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if !ok {
		return fmt.Errorf("verify: object %s missing after upload", key)
	}
	return nil
}

// archiveKey partitions archive files by the year-month of the cutoff:
//
//	archive/trades/2026-08.jsonl
//	archive/audit/2026-08.jsonl
func archiveKey(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL encodes a slice as newline-delimited JSON.
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
