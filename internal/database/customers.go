package database

import (
	"context"
	"database/sql"
	"errors"

	"courierbot/internal/models"
)

// GetCustomerByID returns the customer with the given number, or nil when
// none exists.
func (db *DB) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	query := `SELECT CustomerID, EmailID FROM customers WHERE CustomerID = ?`

	var customer models.Customer
	err := db.db.QueryRowContext(ctx, query, id).Scan(&customer.ID, &customer.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &customer, nil
}

// GetCustomerByEmail returns the customer registered under email, or nil.
func (db *DB) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	query := `SELECT CustomerID, EmailID FROM customers WHERE EmailID = ?`

	var customer models.Customer
	err := db.db.QueryRowContext(ctx, query, email).Scan(&customer.ID, &customer.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &customer, nil
}

// RegisterCustomer inserts a new customer row. The generated number is not
// returned; callers re-query by email, which also makes registration
// idempotent by identity.
func (db *DB) RegisterCustomer(ctx context.Context, email string) error {
	query := `INSERT INTO customers (EmailID) VALUES (?)`

	_, err := db.db.ExecContext(ctx, query, email)
	return err
}
