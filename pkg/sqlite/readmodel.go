package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jvhellemondt/api-time-registration/pkg/readmodel"
)

// ReadModelStore is a SQLite-backed implementation of
// readmodel.Repository, readmodel.WatermarkStore, and
// readmodel.TxRepository. Rows are keyed by (user_id, entry_id); tags are
// stored as a JSON array.
type ReadModelStore struct {
	db *sql.DB
}

// NewReadModelStore creates a read model store over an open database handle.
func NewReadModelStore(db *DB) *ReadModelStore {
	return &ReadModelStore{db: db.db}
}

// execer is the subset of *sql.DB and *sql.Tx the store writes through.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Upsert inserts or replaces the row under its logical key in its own
// transaction. Projection paths should prefer ApplyInTx so the row and
// its watermark commit together.
func (s *ReadModelStore) Upsert(ctx context.Context, row readmodel.Row) error {
	return s.upsert(ctx, s.db, row)
}

// UpsertInTx inserts or replaces the row within the provided transaction.
func (s *ReadModelStore) UpsertInTx(ctx context.Context, tx *sql.Tx, row readmodel.Row) error {
	return s.upsert(ctx, tx, row)
}

func (s *ReadModelStore) upsert(ctx context.Context, ex execer, row readmodel.Row) error {
	tags, err := json.Marshal(row.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO time_entry_rows
			(user_id, entry_id, start_time, end_time, tags, description,
			 created_at, created_by, updated_at, updated_by, deleted_at, last_event_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, entry_id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			tags = excluded.tags,
			description = excluded.description,
			created_at = excluded.created_at,
			created_by = excluded.created_by,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by,
			deleted_at = excluded.deleted_at,
			last_event_ref = excluded.last_event_ref
	`, row.UserID, row.EntryID, row.StartTime, row.EndTime, string(tags), row.Description,
		row.CreatedAt, row.CreatedBy, row.UpdatedAt, row.UpdatedBy, row.DeletedAt, row.LastEventRef)
	if err != nil {
		return fmt.Errorf("upsert row %s/%s: %w", row.UserID, row.EntryID, err)
	}
	return nil
}

// ListByUser returns the user's rows sorted by start time, paginated by
// (offset, limit).
func (s *ReadModelStore) ListByUser(ctx context.Context, userID string, offset, limit int, desc bool) ([]readmodel.Row, error) {
	order := "ASC"
	if desc {
		order = "DESC"
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT user_id, entry_id, start_time, end_time, tags, description,
		       created_at, created_by, updated_at, updated_by, deleted_at, last_event_ref
		FROM time_entry_rows
		WHERE user_id = ?
		ORDER BY start_time %s
		LIMIT ? OFFSET ?
	`, order), userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list rows for user %s: %w", userID, err)
	}
	defer rows.Close()

	var result []readmodel.Row
	for rows.Next() {
		var row readmodel.Row
		var tags string
		if err := rows.Scan(
			&row.UserID,
			&row.EntryID,
			&row.StartTime,
			&row.EndTime,
			&tags,
			&row.Description,
			&row.CreatedAt,
			&row.CreatedBy,
			&row.UpdatedAt,
			&row.UpdatedBy,
			&row.DeletedAt,
			&row.LastEventRef,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &row.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags for %s/%s: %w", row.UserID, row.EntryID, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rows for user %s: %w", userID, err)
	}
	return result, nil
}

// ApplyInTx writes a row mutation and its watermark in one transaction,
// closing the dual-write window between Upsert and Save. A nil row
// advances the watermark alone.
func (s *ReadModelStore) ApplyInTx(ctx context.Context, row *readmodel.Row, wm *readmodel.Watermark) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply: %w", err)
	}
	defer tx.Rollback()

	if row != nil {
		if err := s.upsert(ctx, tx, *row); err != nil {
			return err
		}
	}
	if err := s.saveWatermark(ctx, tx, wm); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply: %w", err)
	}
	return nil
}

// Save stores the watermark for its projector name in its own transaction.
func (s *ReadModelStore) Save(ctx context.Context, wm *readmodel.Watermark) error {
	return s.saveWatermark(ctx, s.db, wm)
}

// SaveInTx stores the watermark within the provided transaction, so a
// projection mutation and its watermark can commit atomically.
func (s *ReadModelStore) SaveInTx(ctx context.Context, tx *sql.Tx, wm *readmodel.Watermark) error {
	return s.saveWatermark(ctx, tx, wm)
}

func (s *ReadModelStore) saveWatermark(ctx context.Context, ex execer, wm *readmodel.Watermark) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO watermarks (projector_name, position, last_event_ref, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (projector_name) DO UPDATE SET
			position = excluded.position,
			last_event_ref = excluded.last_event_ref,
			updated_at = excluded.updated_at
	`, wm.ProjectorName, wm.Position, wm.LastEventRef, wm.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save watermark %s: %w", wm.ProjectorName, err)
	}
	return nil
}

// Load returns the watermark, or readmodel.ErrWatermarkNotFound.
func (s *ReadModelStore) Load(ctx context.Context, projectorName string) (*readmodel.Watermark, error) {
	wm := readmodel.Watermark{ProjectorName: projectorName}
	var updatedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT position, last_event_ref, updated_at FROM watermarks WHERE projector_name = ?
	`, projectorName).Scan(&wm.Position, &wm.LastEventRef, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, readmodel.ErrWatermarkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load watermark %s: %w", projectorName, err)
	}
	wm.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &wm, nil
}

// Delete removes the watermark.
func (s *ReadModelStore) Delete(ctx context.Context, projectorName string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM watermarks WHERE projector_name = ?
	`, projectorName)
	if err != nil {
		return fmt.Errorf("delete watermark %s: %w", projectorName, err)
	}
	return nil
}
