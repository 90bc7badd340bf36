package store

import (
	"database/sql"
	"errors"
	"time"
)

// Recording is the metadata of an uploaded session recording.
type Recording struct {
	ID          string        `json:"id"`
	Filename    string        `json:"filename"`
	StoragePath string        `json:"storagePath"`
	URL         string        `json:"url"`
	Size        int64         `json:"size"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// RecordingRepository provides CRUD operations for recordings.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// Create inserts a recording. CreatedAt is set when zero.
func (r *RecordingRepository) Create(rec *Recording) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO recordings (id, filename, storage_path, url, size_bytes, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Filename, rec.StoragePath, rec.URL, rec.Size, rec.Duration.Milliseconds(), rec.CreatedAt.UTC(),
	)
	return err
}

// GetByID retrieves a recording by its ID.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	rec := &Recording{}
	var durationMs int64

	err := r.db.QueryRow(
		`SELECT id, filename, storage_path, url, size_bytes, duration_ms, created_at
		 FROM recordings WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.Filename, &rec.StoragePath, &rec.URL, &rec.Size, &durationMs, &rec.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec.Duration = time.Duration(durationMs) * time.Millisecond
	return rec, nil
}

// List returns all recordings, newest first.
func (r *RecordingRepository) List() ([]*Recording, error) {
	rows, err := r.db.Query(
		`SELECT id, filename, storage_path, url, size_bytes, duration_ms, created_at
		 FROM recordings ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recordings []*Recording
	for rows.Next() {
		rec := &Recording{}
		var durationMs int64
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.StoragePath, &rec.URL, &rec.Size, &durationMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		recordings = append(recordings, rec)
	}

	return recordings, rows.Err()
}

// Delete removes a recording by its ID.
func (r *RecordingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
