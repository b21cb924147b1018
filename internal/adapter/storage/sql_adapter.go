package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rl1809/marketplace/internal/core/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS receipts (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		cart_id BIGINT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS receipt_lines (
		receipt_id VARCHAR(36) NOT NULL,
		line_no INT NOT NULL,
		product_type VARCHAR(64) NOT NULL,
		product_name VARCHAR(128) NOT NULL,
		product_price BIGINT NOT NULL,
		producer_id BIGINT NOT NULL,
		units INT NOT NULL,
		PRIMARY KEY (receipt_id, line_no)
	)`,
}

// SQLAdapter stores receipts in MySQL or SQLite. Both drivers accept the
// same statements.
type SQLAdapter struct {
	db *sql.DB
}

func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// OpenSQL opens and pings a database for the given driver ("mysql" or "sqlite3").
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	switch driver {
	case "sqlite3":
		// single writer
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

func (m *SQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (m *SQLAdapter) SaveReceipt(ctx context.Context, receipt domain.Receipt) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts (id, cart_id, created_at)
		VALUES (?, ?, ?)`,
		receipt.ID, receipt.CartID, receipt.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}

	for i, line := range receipt.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO receipt_lines (receipt_id, line_no, product_type, product_name, product_price, producer_id, units)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			receipt.ID, i, line.Product.Type, line.Product.Name, line.Product.Price, line.ProducerID, line.Units,
		)
		if err != nil {
			return fmt.Errorf("insert receipt line %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (m *SQLAdapter) GetReceipt(ctx context.Context, id string) (*domain.Receipt, error) {
	var r domain.Receipt
	err := m.db.QueryRowContext(ctx, `
		SELECT id, cart_id, created_at
		FROM receipts WHERE id = ?`, id,
	).Scan(&r.ID, &r.CartID, &r.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query receipt: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT product_type, product_name, product_price, producer_id, units
		FROM receipt_lines WHERE receipt_id = ? ORDER BY line_no`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("query receipt lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.Product.Type, &l.Product.Name, &l.Product.Price, &l.ProducerID, &l.Units); err != nil {
			return nil, fmt.Errorf("scan receipt line: %w", err)
		}
		r.Lines = append(r.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipt lines: %w", err)
	}

	r.Items = domain.Flatten(r.Lines)
	return &r, nil
}
