package bisync

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/openmined/bisync/internal/utils"
)

const baselineFormatVersion = 1

const baselineSchema = `
CREATE TABLE IF NOT EXISTS baseline (
    path TEXT PRIMARY KEY,
    a_size INTEGER,
    a_mtime TEXT,
    b_size INTEGER,
    b_mtime TEXT
);
`

var (
	// ErrBaselineCorrupt marks an existing baseline database that cannot
	// be read. It is deliberately distinct from "no baseline yet":
	// treating corruption as an empty baseline would reclassify every
	// file as first-run churn and mask the damage.
	ErrBaselineCorrupt = errors.New("baseline database is corrupt or has an unsupported format")

	// ErrWorkDir marks an unusable working directory.
	ErrWorkDir = errors.New("cannot use the working directory")
)

// BaselineEntry is the persisted last-synchronized state of one path.
// A nil side means the file was absent on that side when the baseline
// was recorded.
type BaselineEntry struct {
	A *FileAttributes
	B *FileAttributes
}

// BaselineStore persists the last-synchronized attribute set for one
// sync pair in an SQLite database under the working directory, one
// database per pair identifier.
type BaselineStore struct {
	db     *sql.DB
	dbPath string
}

// OpenBaselineStore opens or creates the baseline database for pairID.
// A missing database is a valid first run; an existing database that
// cannot be read or carries the wrong format version fails with
// ErrBaselineCorrupt.
func OpenBaselineStore(workDir, pairID string) (*BaselineStore, error) {
	if err := utils.EnsureDir(workDir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkDir, err)
	}

	dbPath := filepath.Join(workDir, pairID+".db")
	fresh := !utils.FileExists(dbPath)

	dsn := fmt.Sprintf("file:%s?mode=rwc&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open baseline db at %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrBaselineCorrupt, err)
	}

	if fresh {
		if _, err := db.Exec(baselineSchema); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize baseline schema: %w", err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", baselineFormatVersion)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to stamp baseline version: %w", err)
		}
	} else if version != baselineFormatVersion {
		db.Close()
		return nil, fmt.Errorf("%w: found version %d, want %d", ErrBaselineCorrupt, version, baselineFormatVersion)
	}

	return &BaselineStore{db: db, dbPath: dbPath}, nil
}

func (s *BaselineStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the location of the backing database file.
func (s *BaselineStore) Path() string {
	return s.dbPath
}

// Load returns the full persisted state. An empty database yields an
// empty map; unreadable rows fail with ErrBaselineCorrupt.
func (s *BaselineStore) Load() (map[string]*BaselineEntry, error) {
	rows, err := s.db.Query("SELECT path, a_size, a_mtime, b_size, b_mtime FROM baseline")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaselineCorrupt, err)
	}
	defer rows.Close()

	state := make(map[string]*BaselineEntry)
	for rows.Next() {
		var path string
		var aSize, bSize sql.NullInt64
		var aTime, bTime sql.NullString
		if err := rows.Scan(&path, &aSize, &aTime, &bSize, &bTime); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBaselineCorrupt, err)
		}

		entry := &BaselineEntry{}
		if entry.A, err = scanSide(aSize, aTime); err != nil {
			return nil, fmt.Errorf("%w: path %s side A: %v", ErrBaselineCorrupt, path, err)
		}
		if entry.B, err = scanSide(bSize, bTime); err != nil {
			return nil, fmt.Errorf("%w: path %s side B: %v", ErrBaselineCorrupt, path, err)
		}
		state[path] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaselineCorrupt, err)
	}
	return state, nil
}

// Save replaces the entire persisted state in a single transaction, so
// a crash mid-write leaves either the old or the new baseline, never a
// partial one.
func (s *BaselineStore) Save(state map[string]*BaselineEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin baseline transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM baseline"); err != nil {
		return fmt.Errorf("failed to clear baseline: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO baseline (path, a_size, a_mtime, b_size, b_mtime) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare baseline insert: %w", err)
	}
	defer stmt.Close()

	for path, entry := range state {
		aSize, aTime := sideColumns(entry.A)
		bSize, bTime := sideColumns(entry.B)
		if _, err := stmt.Exec(path, aSize, aTime, bSize, bTime); err != nil {
			return fmt.Errorf("failed to write baseline for %s: %w", path, err)
		}
	}

	return tx.Commit()
}

func scanSide(size sql.NullInt64, mtime sql.NullString) (*FileAttributes, error) {
	if !size.Valid && !mtime.Valid {
		return nil, nil
	}
	if !size.Valid || !mtime.Valid {
		return nil, errors.New("half-populated attributes")
	}
	t, err := time.Parse(time.RFC3339, mtime.String)
	if err != nil {
		return nil, err
	}
	return &FileAttributes{Size: size.Int64, ModTime: t}, nil
}

func sideColumns(attrs *FileAttributes) (any, any) {
	if attrs == nil {
		return nil, nil
	}
	return attrs.Size, attrs.ModTime.UTC().Format(time.RFC3339)
}
