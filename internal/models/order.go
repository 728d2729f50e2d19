package models

import "time"

// Order lifecycle: paid -> received. Received is terminal; there is no
// cancelled state, a paid order stays paid until it is redeemed.
const (
	OrderStatusPaid     = "paid"
	OrderStatusReceived = "received"
)

// Purchase kinds. Kind is a tag only, it does not change pricing.
const (
	OrderKindSingle       = "single"
	OrderKindSubscription = "subscription"
)

func IsValidOrderKind(kind string) bool {
	return kind == OrderKindSingle || kind == OrderKindSubscription
}

// Order is immutable once created except for Status.
type Order struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int       `json:"user_id" db:"user_id"`
	MenuItemID int64     `json:"menu_item_id" db:"menu_item_id"`
	Kind       string    `json:"kind" db:"kind"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
