package models

import "time"

type Review struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int       `json:"user_id" db:"user_id"`
	Username   string    `json:"username,omitempty"`
	MenuItemID int64     `json:"menu_item_id" db:"menu_item_id"`
	Rating     int       `json:"rating" db:"rating"` // 1 to 5
	Comment    string    `json:"comment" db:"comment"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
