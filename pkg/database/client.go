package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/igorvan/qrscan/pkg/history"
	"github.com/igorvan/qrscan/pkg/logging"
)

const (
	pingTimeout = 5 * time.Second
)

// Client - DB client wrapper, keeps the scan log in the scan_history table
type Client struct {
	db  *sql.DB
	log logging.Logger
}

// New - Client constructor
func New(db *sql.DB, log logging.Logger) (*Client, error) {
	if db == nil {
		return nil, fmt.Errorf("no database handle provided")
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return nil, err
	}

	return &Client{db, logging.NullSafe(log)}, nil
}

// Initialize - creates the table when missing
func (c *Client) Initialize(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, createTableQuery()); err != nil {
		return fmt.Errorf("cannot create scan_history table: %w", err)
	}
	return nil
}

// LoadAll - every record in insertion order
func (c *Client) LoadAll(ctx context.Context) ([]history.ScanRecord, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT data, scan_date, scan_time, status FROM scan_history ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("cannot query scan_history: %w", err)
	}
	defer rows.Close()

	var records []history.ScanRecord
	for rows.Next() {
		var row ScanData
		if err := rows.Scan(&row.Data, &row.Date, &row.Time, &row.Status); err != nil {
			return nil, fmt.Errorf("cannot scan scan_history row: %w", err)
		}
		records = append(records, history.ScanRecord{
			Data:   row.Data,
			Date:   row.Date,
			Time:   row.Time,
			Status: history.Status(row.Status),
		})
	}
	return records, rows.Err()
}

// Append - inserts one record
func (c *Client) Append(ctx context.Context, rec history.ScanRecord) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO scan_history (hash, data, scan_date, scan_time, status) VALUES (?,?,?,?,?);`,
		history.Hash(rec.Data), rec.Data, rec.Date, rec.Time, string(rec.Status))
	if err != nil {
		return fmt.Errorf("cannot insert scan record: %w", err)
	}
	return nil
}

// DeleteWhere - removes the rows whose data matches inside one transaction
func (c *Client) DeleteWhere(ctx context.Context, match func(data string) bool) (n int, err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				c.log.Error("cannot rollback scan_history delete", "error", rbErr)
			}
		}
	}()

	ids, err := matchingIDs(ctx, tx, match)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, tx.Commit()
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	res, err := tx.ExecContext(ctx, `DELETE FROM scan_history WHERE id IN (`+placeholders+`);`, args...)
	if err != nil {
		return 0, fmt.Errorf("cannot delete scan records: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return int(affected), nil
}

func matchingIDs(ctx context.Context, tx *sql.Tx, match func(string) bool) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, data FROM scan_history ORDER BY id FOR UPDATE;`)
	if err != nil {
		return nil, fmt.Errorf("cannot query scan_history: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var row ScanData
		if err := rows.Scan(&row.ID, &row.Data); err != nil {
			return nil, fmt.Errorf("cannot scan scan_history row: %w", err)
		}
		if match(row.Data) {
			ids = append(ids, row.ID)
		}
	}
	return ids, rows.Err()
}

func createTableQuery() string {
	return `CREATE TABLE IF NOT EXISTS scan_history (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				hash BIGINT UNSIGNED NOT NULL,
				data TEXT NOT NULL,
				scan_date CHAR(10) NOT NULL,
				scan_time CHAR(8) NOT NULL,
				status VARCHAR(16) NOT NULL,
				INDEX idx_scan_history_hash (hash)
			);`
}
