package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rusenback/dockstream/internal/model"
)

// Store is the persistent host directory. It keeps configured hosts
// only; logs and events stay in memory with their sessions.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the host database under ~/.dockstream.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	dataDir := filepath.Join(homeDir, ".dockstream")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return NewStoreAt(filepath.Join(dataDir, "hosts.db"))
}

// NewStoreAt opens the host database at an explicit path.
func NewStoreAt(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// createTables creates the database schema
func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS hosts (
		id TEXT PRIMARY KEY,
		name TEXT,
		endpoint TEXT NOT NULL,
		added_at INTEGER NOT NULL
	);
	`

	_, err := db.Exec(schema)
	return err
}

// UpsertHost inserts or updates one configured host.
func (s *Store) UpsertHost(h model.Host) error {
	if h.ID == "" || h.Endpoint == "" {
		return fmt.Errorf("host needs an id and an endpoint")
	}
	_, err := s.db.Exec(`
		INSERT INTO hosts (id, name, endpoint, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, endpoint = excluded.endpoint
	`, h.ID, h.Name, h.Endpoint, time.Now().Unix())
	return err
}

// RemoveHost deletes a host from the directory.
func (s *Store) RemoveHost(id string) error {
	_, err := s.db.Exec("DELETE FROM hosts WHERE id = ?", id)
	return err
}

// Hosts lists every configured host. Implements model.HostDirectory.
func (s *Store) Hosts() ([]model.Host, error) {
	rows, err := s.db.Query("SELECT id, name, endpoint FROM hosts ORDER BY added_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hosts []model.Host
	for rows.Next() {
		var h model.Host
		if err := rows.Scan(&h.ID, &h.Name, &h.Endpoint); err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}

	return hosts, rows.Err()
}

// Endpoint resolves a host id. Implements model.HostDirectory.
func (s *Store) Endpoint(hostID string) (string, error) {
	var endpoint string
	err := s.db.QueryRow("SELECT endpoint FROM hosts WHERE id = ?", hostID).Scan(&endpoint)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("unknown host %q", hostID)
	}
	if err != nil {
		return "", err
	}
	return endpoint, nil
}

// Close closes the storage
func (s *Store) Close() error {
	return s.db.Close()
}
