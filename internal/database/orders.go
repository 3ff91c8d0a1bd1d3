package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"courierbot/internal/models"
)

// windowColumns maps a TimeWindow onto the optional column subset it
// populates. The shape invariant is enforced before any SQL is assembled, so
// column and parameter counts can never diverge.
func windowColumns(prefix string, w models.TimeWindow) ([]string, []interface{}, error) {
	if err := w.Validate(); err != nil {
		return nil, nil, err
	}

	columns := []string{prefix + "TimeX", prefix + "Type"}
	params := []interface{}{w.Timex, string(w.Kind)}

	if w.Value != "" {
		columns = append(columns, prefix+"Value")
		params = append(params, w.Value)
	}
	if w.Start != "" {
		columns = append(columns, prefix+"Start")
		params = append(params, w.Start)
	}
	if w.End != "" {
		columns = append(columns, prefix+"End")
		params = append(params, w.End)
	}

	return columns, params, nil
}

// InsertOrder persists a booked shipment. The column list varies with the
// shape of each window, so it is assembled from the declarative mapping above.
func (db *DB) InsertOrder(ctx context.Context, order *models.Order) error {
	columns := []string{
		"CustomerID", "OriginAddress", "DestinationAddress",
		"ItemType", "ItemCount", "ItemTotalWeight",
	}
	params := []interface{}{
		order.CustomerID, order.OriginAddress, order.DestinationAddress,
		order.ItemType, order.ItemCount, order.ItemTotalWeight,
	}

	pickupColumns, pickupParams, err := windowColumns("PickupWindow", order.PickupWindow)
	if err != nil {
		return fmt.Errorf("pickup window: %w", err)
	}
	columns = append(columns, pickupColumns...)
	params = append(params, pickupParams...)

	columns = append(columns, "Instructions")
	params = append(params, order.Instructions)

	receivingColumns, receivingParams, err := windowColumns("ReceivingWindow", order.ReceivingWindow)
	if err != nil {
		return fmt.Errorf("receiving window: %w", err)
	}
	columns = append(columns, receivingColumns...)
	params = append(params, receivingParams...)

	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	columns = append(columns, "CreatedDate")
	params = append(params, createdAt.Unix())

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf("INSERT INTO orders (%s) VALUES (%s)",
		strings.Join(columns, ", "), placeholders)

	result, err := db.db.ExecContext(ctx, query, params...)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	order.ID = id
	return nil
}

// GetLastOrderID returns the most recent order number for a customer, or 0
// when the customer has no orders.
func (db *DB) GetLastOrderID(ctx context.Context, customerID int64) (int64, error) {
	query := `SELECT OrderID FROM orders WHERE CustomerID = ? ORDER BY OrderID DESC LIMIT 1`

	var id int64
	err := db.db.QueryRowContext(ctx, query, customerID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return id, nil
}

// GetOrdersByCustomerAndIDs returns the customer's orders among the given
// order identifiers. Every identifier binds to its own placeholder; no user
// input reaches the statement text.
func (db *DB) GetOrdersByCustomerAndIDs(ctx context.Context, customerID int64, orderIDs []string) ([]models.Order, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, 0, len(orderIDs))
	params := []interface{}{customerID}
	for _, raw := range orderIDs {
		placeholders = append(placeholders, "?")
		params = append(params, strings.TrimSpace(raw))
	}

	query := fmt.Sprintf(`
        SELECT OrderID, CustomerID, OriginAddress, DestinationAddress,
               ItemType, ItemCount, ItemTotalWeight,
               PickupWindowTimeX, PickupWindowType, PickupWindowValue, PickupWindowStart, PickupWindowEnd,
               Instructions,
               ReceivingWindowTimeX, ReceivingWindowType, ReceivingWindowValue, ReceivingWindowStart, ReceivingWindowEnd,
               CreatedDate
        FROM orders
        WHERE CustomerID = ? AND OrderID IN (%s)
        ORDER BY OrderID
    `, strings.Join(placeholders, ", "))

	rows, err := db.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func scanOrder(rows *sql.Rows) (models.Order, error) {
	var (
		order                                 models.Order
		pickupValue, pickupStart, pickupEnd   sql.NullString
		receiveValue, receiveStart, receiveEnd sql.NullString
		pickupKind, receiveKind               string
		createdUnix                           int64
	)

	err := rows.Scan(
		&order.ID,
		&order.CustomerID,
		&order.OriginAddress,
		&order.DestinationAddress,
		&order.ItemType,
		&order.ItemCount,
		&order.ItemTotalWeight,
		&order.PickupWindow.Timex,
		&pickupKind,
		&pickupValue,
		&pickupStart,
		&pickupEnd,
		&order.Instructions,
		&order.ReceivingWindow.Timex,
		&receiveKind,
		&receiveValue,
		&receiveStart,
		&receiveEnd,
		&createdUnix,
	)
	if err != nil {
		return models.Order{}, err
	}

	order.PickupWindow.Kind = models.TimeWindowKind(pickupKind)
	order.PickupWindow.Value = pickupValue.String
	order.PickupWindow.Start = pickupStart.String
	order.PickupWindow.End = pickupEnd.String
	order.ReceivingWindow.Kind = models.TimeWindowKind(receiveKind)
	order.ReceivingWindow.Value = receiveValue.String
	order.ReceivingWindow.Start = receiveStart.String
	order.ReceivingWindow.End = receiveEnd.String
	order.CreatedAt = time.Unix(createdUnix, 0)

	return order, nil
}
