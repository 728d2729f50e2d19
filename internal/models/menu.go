package models

import "time"

// Meal categories shown on the menu board.
const (
	MealTypeBreakfast = "breakfast"
	MealTypeLunch     = "lunch"
	MealTypeDinner    = "dinner"
	MealTypeSnack     = "snack"
)

func IsValidMealType(mealType string) bool {
	switch mealType {
	case MealTypeBreakfast, MealTypeLunch, MealTypeDinner, MealTypeSnack:
		return true
	}
	return false
}

// MenuItem is a dish on offer. AvailableQty is only ever mutated through
// the stock register so it can never go negative.
type MenuItem struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	Price        int64     `json:"price" db:"price"` // in minor units
	MealType     string    `json:"meal_type" db:"meal_type"`
	AvailableQty int       `json:"available_qty" db:"available_qty"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
