package store

import (
	"context"
	"database/sql"

	"github.com/ayusman/signspeak/internal/transcript"
)

// TranscriptRepository persists transcript entries. It implements transcript.Sink.
type TranscriptRepository struct {
	db *sql.DB
}

// Transcripts returns the transcript repository for this store.
func (s *Store) Transcripts() *TranscriptRepository {
	return &TranscriptRepository{db: s.db}
}

// AppendEntry inserts an entry after all existing ones.
func (r *TranscriptRepository) AppendEntry(ctx context.Context, e transcript.Entry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transcript_entries (id, text, confidence, created_at) VALUES (?, ?, ?, ?)`,
		e.ID, e.Text, e.Confidence, e.Timestamp.UTC(),
	)
	return err
}

// ClearEntries deletes every entry in one statement.
func (r *TranscriptRepository) ClearEntries(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transcript_entries`)
	return err
}

// List returns all entries in insertion order.
func (r *TranscriptRepository) List(ctx context.Context) ([]transcript.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, text, confidence, created_at FROM transcript_entries ORDER BY seq`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []transcript.Entry
	for rows.Next() {
		var e transcript.Entry
		if err := rows.Scan(&e.ID, &e.Text, &e.Confidence, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of persisted entries.
func (r *TranscriptRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcript_entries`).Scan(&n)
	return n, err
}
