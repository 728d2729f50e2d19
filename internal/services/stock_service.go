package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/canteenpay/backend/internal/models"
	"github.com/go-chi/chi/v5"
)

// StockService owns the available quantity of each menu item. The quantity
// is only mutated here, always under a row lock, so it can never go negative.
type StockService struct {
	db *sql.DB
}

func NewStockService(db *sql.DB) *StockService {
	return &StockService{db: db}
}

// ReserveTx decrements the item's available quantity by count inside the
// caller's transaction, locking the row first. Returns ErrOutOfStock without
// modifying anything when fewer than count portions remain. A nonexistent
// item reports ErrItemNotFound.
func (s *StockService) ReserveTx(tx *sql.Tx, itemID int64, count int) (*models.MenuItem, error) {
	item, err := s.lockItem(tx, itemID)
	if err != nil {
		return nil, err
	}

	if item.AvailableQty < count {
		return nil, ErrOutOfStock
	}

	result, err := tx.Exec(`
		UPDATE menu_items
		SET available_qty = available_qty - $1
		WHERE id = $2 AND available_qty >= $1`,
		count, itemID)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, ErrOutOfStock
	}

	item.AvailableQty -= count
	return item, nil
}

// ReleaseTx adds count portions back inside the caller's transaction.
// Used for restocking and for compensating a failed purchase.
func (s *StockService) ReleaseTx(tx *sql.Tx, itemID int64, count int) error {
	if _, err := s.lockItem(tx, itemID); err != nil {
		return err
	}

	_, err := tx.Exec(`
		UPDATE menu_items
		SET available_qty = available_qty + $1
		WHERE id = $2`,
		count, itemID)
	return err
}

// Release wraps ReleaseTx in its own transaction.
func (s *StockService) Release(itemID int64, count int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.ReleaseTx(tx, itemID, count); err != nil {
		return err
	}

	return tx.Commit()
}

// GetStock returns the currently available quantity for display purposes.
func (s *StockService) GetStock(itemID int64) (int, error) {
	var qty int
	err := s.db.QueryRow(`SELECT available_qty FROM menu_items WHERE id = $1`, itemID).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0, ErrItemNotFound
	}
	if err != nil {
		return 0, err
	}
	return qty, nil
}

func (s *StockService) lockItem(tx *sql.Tx, itemID int64) (*models.MenuItem, error) {
	var item models.MenuItem
	err := tx.QueryRow(`
		SELECT id, name, price, available_qty
		FROM menu_items
		WHERE id = $1
		FOR UPDATE`, itemID).Scan(&item.ID, &item.Name, &item.Price, &item.AvailableQty)

	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// StockEnquiry returns the available quantity of a menu item
// @Summary Get stock
// @Description Retrieve the remaining quantity of a menu item
// @Tags menu
// @Produce json
// @Security BearerAuth
// @Param itemId path int true "Menu item ID"
// @Success 200 {object} object{itemId=int64,available=int}
// @Failure 404 {object} ErrorResponse
// @Router /menu/{itemId}/stock [get]
func (s *StockService) StockEnquiry(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil || itemID <= 0 {
		SendErrorResponse(w, "Invalid item id", http.StatusBadRequest, nil)
		return
	}

	qty, err := s.GetStock(itemID)
	if err != nil {
		if err == ErrItemNotFound {
			SendErrorResponse(w, "Menu item not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[STOCK] Stock enquiry failed for item %d: %v", itemID, err)
			SendErrorResponse(w, "Failed to fetch stock", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"itemId":    itemID,
		"available": qty,
	})
}
