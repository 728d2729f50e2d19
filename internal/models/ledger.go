package models

import (
	"time"
)

type LedgerEntry struct {
	ID            int       `json:"id" db:"id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	UserID        int       `json:"user_id" db:"user_id"`
	Amount        int64     `json:"amount" db:"amount"` // in minor units
	EntryType     string    `json:"entry_type" db:"entry_type"` // DEBIT or CREDIT
	Balance       int64     `json:"balance" db:"balance"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type Account struct {
	UserID    int       `json:"user_id" db:"user_id"`
	Balance   int64     `json:"balance" db:"balance"`
	Version   int       `json:"version" db:"version"` // for optimistic locking
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
