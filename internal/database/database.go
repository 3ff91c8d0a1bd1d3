package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the record store over sqlite. One connection pool serves all logical
// operations; every order insert is a single statement, so no multi-statement
// transactions are needed.
type DB struct {
	db     *sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Record store initialized")
	return &DB{db: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS customers (
            CustomerID INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
            EmailID TEXT NOT NULL UNIQUE
        )`,
		// The five nullable columns per window hold whichever shape the
		// recognized time expression takes: a single value or a start/end pair.
		`CREATE TABLE IF NOT EXISTS orders (
            OrderID INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
            CustomerID INTEGER,
            OriginAddress TEXT,
            DestinationAddress TEXT,
            ItemType TEXT,
            ItemCount INTEGER,
            ItemTotalWeight INTEGER,
            PickupWindowTimeX TEXT,
            PickupWindowType TEXT,
            PickupWindowValue TEXT,
            PickupWindowStart TEXT,
            PickupWindowEnd TEXT,
            Instructions TEXT,
            ReceivingWindowTimeX TEXT,
            ReceivingWindowType TEXT,
            ReceivingWindowValue TEXT,
            ReceivingWindowStart TEXT,
            ReceivingWindowEnd TEXT,
            CreatedDate INTEGER,
            FOREIGN KEY(CustomerID) REFERENCES customers(CustomerID)
        )`,

		`CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(CustomerID)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// PingContext checks connectivity.
func (db *DB) PingContext(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.db.Close()
}
