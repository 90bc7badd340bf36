package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Transcript entries in acceptance order; seq preserves insertion order.
		`CREATE TABLE IF NOT EXISTS transcript_entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			text TEXT NOT NULL,
			confidence REAL NOT NULL CHECK(confidence >= 0 AND confidence <= 1),
			created_at DATETIME NOT NULL
		)`,

		// Uploaded recordings
		`CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			storage_path TEXT NOT NULL,
			url TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Settings table - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_recordings_created_at ON recordings(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
