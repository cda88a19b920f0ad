package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"simbapos/internal/core/id"
	"simbapos/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm of stored changes.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditRecord is the persisted shape of an audit entry.
type AuditRecord struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          string          `db:"entity_id"`
	Action            string          `db:"action"`
	ActorID           string          `db:"actor_id"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	Note              string          `db:"note"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditSink implements audit.Sink against the sys_audit table.
// Large change payloads are zstd-compressed before insert.
type AuditSink struct {
	txm               *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditSink creates the audit sink.
func NewAuditSink(txm *TxManager) (*AuditSink, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditSink{
		txm:               txm,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record implements audit.Sink.
func (s *AuditSink) Record(ctx context.Context, entry audit.Entry) error {
	changes, err := json.Marshal(map[string]any{
		"old": entry.OldValue,
		"new": entry.NewValue,
	})
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	row := AuditRecord{
		ID:              id.New(),
		EntityType:      entry.EntityType,
		EntityID:        entry.EntityID,
		Action:          string(entry.Action),
		ActorID:         entry.ActorID,
		Changes:         changes,
		CompressionAlgo: CompressionNone,
		Note:            entry.Note,
		CreatedAt:       time.Now().UTC(),
	}

	if len(row.Changes) > s.compressThreshold {
		row.ChangesCompressed = s.encoder.EncodeAll(row.Changes, nil)
		row.Changes = nil
		row.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, actor_id,
			changes, changes_compressed, compression_algo, note, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	querier := s.txm.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		row.ID, row.EntityType, row.EntityID, row.Action, row.ActorID,
		row.Changes, row.ChangesCompressed, row.CompressionAlgo,
		row.Note, row.CreatedAt,
	)
	return err
}

// EntityHistory retrieves audit history for an entity, newest first.
func (s *AuditSink) EntityHistory(ctx context.Context, entityType, entityID string, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	sql := `
		SELECT id, entity_type, entity_id, action, actor_id,
		       changes, changes_compressed, compression_algo, note, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.txm.GetQuerier(ctx).Query(ctx, sql, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []AuditRecord
	for rows.Next() {
		var e AuditRecord
		err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.ActorID,
			&e.Changes, &e.ChangesCompressed, &e.CompressionAlgo,
			&e.Note, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		if e.CompressionAlgo == CompressionZstd && len(e.ChangesCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(e.ChangesCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress changes: %w", err)
			}
			e.Changes = decompressed
			e.ChangesCompressed = nil
		}

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ audit.Sink = (*AuditSink)(nil)
