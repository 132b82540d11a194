package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"jpestate/server/internal/models"
)

// PostgresStore is the Store used in shared deployments. Documents live
// in a JSONB column so ad-hoc field queries stay possible from SQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id SERIAL PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			scraped_at TIMESTAMPTZ DEFAULT NOW(),
			status TEXT NOT NULL DEFAULT 'active',
			url TEXT UNIQUE NOT NULL,
			data JSONB NOT NULL
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

func (s *PostgresStore) UpsertBatch(source string, listings []models.CanonicalListing) ([]int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO listings (source, url, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (url) DO NOTHING
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
		err = stmt.QueryRow(source, url, doc).Scan(&id)
		if err == sql.ErrNoRows {
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

func (s *PostgresStore) FetchAll(includeExpired bool) ([]models.PersistedRecord, error) {
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

func (s *PostgresStore) GetByID(id int64) (*models.PersistedRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, source, scraped_at, status, data
		FROM listings
		WHERE id = $1
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

func (s *PostgresStore) FetchActiveURLs() ([]models.ActiveURL, error) {
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

func (s *PostgresStore) UpdateStatus(id int64, status string) error {
	if err := validateStatus(status); err != nil {
		return err
	}

	result, err := s.db.Exec("UPDATE listings SET status = $1 WHERE id = $2", status, id)
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

func (s *PostgresStore) UpdateCoordinates(id int64, lat, lon float64) error {
	result, err := s.db.Exec(`
		UPDATE listings
		SET data = data
			|| jsonb_build_object('latitude', $1::float8)
			|| jsonb_build_object('longitude', $2::float8)
		WHERE id = $3
	`, lat, lon, id)
	if err != nil {
		return fmt.Errorf("failed to update coordinates: %v", err)
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

func (s *PostgresStore) DeleteAll(confirmation string) (int64, error) {
	if confirmation != DeleteConfirmation {
		return 0, fmt.Errorf("refusing to delete all listings without confirmation")
	}

	result, err := s.db.Exec("DELETE FROM listings")
	if err != nil {
		return 0, fmt.Errorf("failed to delete listings: %v", err)
	}
	return result.RowsAffected()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
