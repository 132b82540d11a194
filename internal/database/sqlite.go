package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"jpestate/server/internal/models"
)

// SQLiteStore is the default Store backed by a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL DEFAULT '',
			scraped_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			status TEXT NOT NULL DEFAULT 'active',
			url TEXT UNIQUE NOT NULL,
			data TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create listings table: %v", err)
	}

	_, err = s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_listings_status
		ON listings(status);
	`)
	if err != nil {
		return fmt.Errorf("failed to create status index: %v", err)
	}

	return nil
}

func (s *SQLiteStore) UpsertBatch(source string, listings []models.CanonicalListing) ([]int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO listings (source, url, data)
		VALUES (?, ?, ?)
		ON CONFLICT(url) DO NOTHING
		RETURNING id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var newIDs []int64
	for _, listing := range listings {
		url, ok := listing.URL()
		if !ok {
			continue
		}

		doc, err := json.Marshal(listing)
		if err != nil {
			return nil, fmt.Errorf("failed to encode listing %s: %w", url, err)
		}

		var id int64
		err = stmt.QueryRow(source, url, string(doc)).Scan(&id)
		if err == sql.ErrNoRows {
			// url already persisted, skipped by design of the conflict clause
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert listing %s: %w", url, err)
		}
		newIDs = append(newIDs, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return newIDs, nil
}

func (s *SQLiteStore) FetchAll(includeExpired bool) ([]models.PersistedRecord, error) {
	query := `
		SELECT id, source, scraped_at, status, data
		FROM listings
	`
	if !includeExpired {
		query += " WHERE status = 'active'"
	}
	query += " ORDER BY id"

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.PersistedRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) GetByID(id int64) (*models.PersistedRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, source, scraped_at, status, data
		FROM listings
		WHERE id = ?
	`, id)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *SQLiteStore) FetchActiveURLs() ([]models.ActiveURL, error) {
	rows, err := s.db.Query(`
		SELECT id, url
		FROM listings
		WHERE status = 'active'
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []models.ActiveURL
	for rows.Next() {
		var u models.ActiveURL
		if err := rows.Scan(&u.ID, &u.URL); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (s *SQLiteStore) UpdateStatus(id int64, status string) error {
	if err := validateStatus(status); err != nil {
		return err
	}

	result, err := s.db.Exec("UPDATE listings SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update status: %v", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpdateCoordinates(id int64, lat, lon float64) error {
	record, err := s.GetByID(id)
	if err != nil {
		return err
	}

	record.Data["latitude"] = lat
	record.Data["longitude"] = lon

	doc, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("failed to encode listing %d: %w", id, err)
	}

	_, err = s.db.Exec("UPDATE listings SET data = ? WHERE id = ?", string(doc), id)
	if err != nil {
		return fmt.Errorf("failed to update coordinates: %v", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteAll(confirmation string) (int64, error) {
	if confirmation != DeleteConfirmation {
		return 0, fmt.Errorf("refusing to delete all listings without confirmation")
	}

	result, err := s.db.Exec("DELETE FROM listings")
	if err != nil {
		return 0, fmt.Errorf("failed to delete listings: %v", err)
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*models.PersistedRecord, error) {
	var record models.PersistedRecord
	var scrapedAt sql.NullTime
	var doc string

	err := row.Scan(&record.ID, &record.Source, &scrapedAt, &record.Status, &doc)
	if err != nil {
		return nil, err
	}

	if scrapedAt.Valid {
		record.ScrapedAt = scrapedAt.Time
	}

	if err := json.Unmarshal([]byte(doc), &record.Data); err != nil {
		return nil, fmt.Errorf("failed to decode listing %d: %w", record.ID, err)
	}
	return &record, nil
}
