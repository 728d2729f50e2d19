package models

import "time"

// Procurement request lifecycle: pending -> approved. Approved is terminal,
// there is no rejected state.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
)

type ProcurementRequest struct {
	ID        int64     `json:"id" db:"id"`
	CookID    int       `json:"cook_id" db:"cook_id"`
	ItemName  string    `json:"item_name" db:"item_name"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
