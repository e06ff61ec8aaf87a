package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ConfirmationRecord is one completed handover as seen from this device.
// The history is display-only; the backend remains the authority on all
// transaction state.
type ConfirmationRecord struct {
	ID               int64     `json:"id"`
	TransactionID    string    `json:"transaction_id"`
	Role             string    `json:"role"`
	CounterpartyID   string    `json:"counterparty_id"`
	CounterpartyName string    `json:"counterparty_name"`
	ConfirmedAt      time.Time `json:"confirmed_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// HistoryRepository stores the local confirmation history
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository opens the history database, creating it if needed
func NewHistoryRepository(dbPath string) (*HistoryRepository, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Create table if not exists
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS confirmations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transaction_id TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL,
			counterparty_id TEXT NOT NULL,
			counterparty_name TEXT NOT NULL,
			confirmed_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_confirmed_at ON confirmations(confirmed_at);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &HistoryRepository{db: db}, nil
}

// Close closes database connection
func (r *HistoryRepository) Close() error {
	return r.db.Close()
}

// Save records a completed confirmation
func (r *HistoryRepository) Save(record *ConfirmationRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO confirmations (transaction_id, role, counterparty_id, counterparty_name, confirmed_at)
		VALUES (?, ?, ?, ?, ?)
	`, record.TransactionID, record.Role, record.CounterpartyID, record.CounterpartyName, record.ConfirmedAt)
	return err
}

// GetByTransactionID gets a confirmation by transaction id
func (r *HistoryRepository) GetByTransactionID(transactionID string) (*ConfirmationRecord, error) {
	var record ConfirmationRecord
	err := r.db.QueryRow(`
		SELECT id, transaction_id, role, counterparty_id, counterparty_name, confirmed_at, created_at
		FROM confirmations
		WHERE transaction_id = ?
		LIMIT 1
	`, transactionID).Scan(
		&record.ID,
		&record.TransactionID,
		&record.Role,
		&record.CounterpartyID,
		&record.CounterpartyName,
		&record.ConfirmedAt,
		&record.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRecent lists the most recent confirmations, newest first
func (r *HistoryRepository) ListRecent(limit int) ([]*ConfirmationRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, transaction_id, role, counterparty_id, counterparty_name, confirmed_at, created_at
		FROM confirmations
		ORDER BY confirmed_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*ConfirmationRecord
	for rows.Next() {
		var record ConfirmationRecord
		if err := rows.Scan(
			&record.ID,
			&record.TransactionID,
			&record.Role,
			&record.CounterpartyID,
			&record.CounterpartyName,
			&record.ConfirmedAt,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// Count returns the number of recorded confirmations
func (r *HistoryRepository) Count() (int64, error) {
	var count int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM confirmations`).Scan(&count)
	return count, err
}
