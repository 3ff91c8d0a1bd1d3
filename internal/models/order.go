package models

import "time"

const (
	ItemTypePallets = "pallets"
	ItemTypeCarton  = "carton"
)

// Order is a booked courier shipment. Created exactly once at the end of a
// completed booking wizard and immutable afterwards.
type Order struct {
	ID                 int64      `json:"id"`
	CustomerID         int64      `json:"customer_id"`
	OriginAddress      string     `json:"origin_address"`
	DestinationAddress string     `json:"destination_address"`
	ItemType           string     `json:"item_type"` // pallets, carton
	ItemCount          int64      `json:"item_count"`
	ItemTotalWeight    int64      `json:"item_total_weight"`
	PickupWindow       TimeWindow `json:"pickup_window"`
	Instructions       string     `json:"instructions"`
	ReceivingWindow    TimeWindow `json:"receiving_window"`
	CreatedAt          time.Time  `json:"created_at"`
}
