package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the SQLite database holding the precomputed embedding sets.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "teller.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- Intent vectors ---

// ReplaceIntentVectors replaces the whole intent_vectors table with recs in a
// single transaction. The previous set stays intact if anything fails:
// reloading the dataset always means re-deriving every embedding.
func (s *Store) ReplaceIntentVectors(recs []IntentRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning replace transaction: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM intent_vectors"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clearing intent vectors: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO intent_vectors (intent_id, instruction, input, output, embedding, position)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range recs {
		if _, err := stmt.Exec(r.IntentID, r.Instruction, r.Input, r.Output, encodeFloat32s(r.Embedding), i); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting intent %s: %w", r.IntentID, err)
		}
	}

	return tx.Commit()
}

// LoadIntentVectors returns all intent records in their original load order.
func (s *Store) LoadIntentVectors() ([]IntentRecord, error) {
	rows, err := s.db.Query(`
		SELECT intent_id, instruction, input, output, embedding, position
		FROM intent_vectors ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying intent vectors: %w", err)
	}
	defer rows.Close()

	var records []IntentRecord
	for rows.Next() {
		var r IntentRecord
		var blob []byte
		if err := rows.Scan(&r.IntentID, &r.Instruction, &r.Input, &r.Output, &blob, &r.Position); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		embedding, err := decodeFloat32s(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", r.IntentID, err)
		}
		r.Embedding = embedding
		records = append(records, r)
	}
	return records, rows.Err()
}

// IntentCount returns the number of stored intent records.
func (s *Store) IntentCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM intent_vectors").Scan(&count)
	return count, err
}

// --- Knowledge vectors ---

// ReplaceKnowledgeVectors replaces the whole knowledge_vectors table with recs
// in a single transaction.
func (s *Store) ReplaceKnowledgeVectors(recs []KnowledgeRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning replace transaction: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM knowledge_vectors"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clearing knowledge vectors: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO knowledge_vectors (id, keywords, answer, embedding, position)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range recs {
		keywords := r.Keywords
		if keywords == "" {
			keywords = "[]"
		}
		if _, err := stmt.Exec(r.ID, keywords, r.Answer, encodeFloat32s(r.Embedding), i); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting knowledge record %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// LoadKnowledgeVectors returns all knowledge records in their original load order.
func (s *Store) LoadKnowledgeVectors() ([]KnowledgeRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, keywords, answer, embedding, position
		FROM knowledge_vectors ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying knowledge vectors: %w", err)
	}
	defer rows.Close()

	var records []KnowledgeRecord
	for rows.Next() {
		var r KnowledgeRecord
		var blob []byte
		if err := rows.Scan(&r.ID, &r.Keywords, &r.Answer, &blob, &r.Position); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		embedding, err := decodeFloat32s(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", r.ID, err)
		}
		r.Embedding = embedding
		records = append(records, r)
	}
	return records, rows.Err()
}

// KnowledgeCount returns the number of stored knowledge records.
func (s *Store) KnowledgeCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM knowledge_vectors").Scan(&count)
	return count, err
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
