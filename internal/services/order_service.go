package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/canteenpay/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// OrderService coordinates the purchase transaction across the stock
// register and the ledger, and owns the order lifecycle (paid -> received).
type OrderService struct {
	db            *sql.DB
	ledger        *LedgerService
	stock         *StockService
	validator     *ValidationHelper
	maxPaidOrders int
}

func NewOrderService(db *sql.DB, ledger *LedgerService, stock *StockService, maxPaidOrders int) *OrderService {
	return &OrderService{
		db:            db,
		ledger:        ledger,
		stock:         stock,
		validator:     NewValidationHelper(),
		maxPaidOrders: maxPaidOrders,
	}
}

// Purchase reserves one portion, debits the item's price and creates a paid
// order as a single database transaction. Row locks are always taken in the
// same global order, menu item before account, so two purchases racing for
// different item/account pairs cannot deadlock. Any failure after the
// reservation rolls the whole transaction back; no reader ever sees reduced
// stock or a debited balance without the matching order.
func (s *OrderService) Purchase(userID int, itemID int64, kind string) (*models.Order, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	item, err := s.stock.ReserveTx(tx, itemID, 1)
	if err != nil {
		return nil, err
	}

	transactionID := uuid.NewString()
	if err := s.ledger.DebitTx(tx, userID, transactionID, item.Price); err != nil {
		// Rollback undoes the reservation; the net effect is as if the
		// purchase never started.
		return nil, err
	}

	order := &models.Order{
		UserID:     userID,
		MenuItemID: itemID,
		Kind:       kind,
		Status:     models.OrderStatusPaid,
	}
	err = tx.QueryRow(`
		INSERT INTO orders (user_id, menu_item_id, kind, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		userID, itemID, kind, models.OrderStatusPaid, time.Now()).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[ORDER] Purchase: order %d, user %d, item %d, price %d (tx %s)",
		order.ID, userID, itemID, item.Price, transactionID)
	return order, nil
}

// Redeem transitions a paid order to received, exactly once. The order row
// is locked so the transition is serialized; a second call fails with
// ErrAlreadyRedeemed and a call by anyone but the owner with ErrNotOwner.
// Redemption never touches the ledger or the stock register; both were
// settled at purchase time.
func (s *OrderService) Redeem(orderID int64, userID int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var ownerID int
	var status string
	err = tx.QueryRow(`
		SELECT user_id, status
		FROM orders
		WHERE id = $1
		FOR UPDATE`, orderID).Scan(&ownerID, &status)
	if err == sql.ErrNoRows {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}

	if ownerID != userID {
		return ErrNotOwner
	}
	if status != models.OrderStatusPaid {
		return ErrAlreadyRedeemed
	}

	if _, err := tx.Exec(`UPDATE orders SET status = $1 WHERE id = $2`,
		models.OrderStatusReceived, orderID); err != nil {
		return err
	}

	return tx.Commit()
}

// CountPaidOrders returns the user's outstanding paid orders. Used by the
// purchase handler to enforce the one-outstanding-order policy; the store
// itself places no cap.
func (s *OrderService) CountPaidOrders(userID int) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM orders WHERE user_id = $1 AND status = $2`,
		userID, models.OrderStatusPaid).Scan(&count)
	return count, err
}

// PurchaseOrder creates a new order
// @Summary Purchase a meal
// @Description Atomically reserve a portion, debit the balance and create a paid order
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{menu_item_id=int64,kind=string} true "Purchase request"
// @Success 201 {object} models.Order
// @Failure 400 {object} ErrorResponse
// @Failure 402 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /student/orders [post]
func (s *OrderService) PurchaseOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		MenuItemID int64  `json:"menu_item_id" validate:"required,gt=0"`
		Kind       string `json:"kind" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if !models.IsValidOrderKind(req.Kind) {
		SendErrorResponse(w, "Unknown order kind", http.StatusBadRequest, nil)
		return
	}

	// Calling policy, not a store invariant: one outstanding paid order.
	if s.maxPaidOrders > 0 {
		count, err := s.CountPaidOrders(userID)
		if err != nil {
			log.Printf("[ORDER] Paid-order count failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to process order", http.StatusInternalServerError, nil)
			return
		}
		if count >= s.maxPaidOrders {
			SendErrorResponse(w, "Unredeemed order outstanding", http.StatusConflict, nil)
			return
		}
	}

	order, err := s.Purchase(userID, req.MenuItemID, req.Kind)
	if err != nil {
		switch {
		case errors.Is(err, ErrOutOfStock), errors.Is(err, ErrItemNotFound):
			SendErrorResponse(w, "Item not available", http.StatusConflict, nil)
		case errors.Is(err, ErrInsufficientFunds):
			SendErrorResponse(w, "Insufficient balance", http.StatusPaymentRequired, nil)
		case errors.Is(err, ErrAccountNotFound):
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		default:
			log.Printf("[ORDER] Purchase failed for user %d, item %d: %v", userID, req.MenuItemID, err)
			SendErrorResponse(w, "Failed to process order", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"order":   order,
	})
}

// RedeemOrder marks an order as received
// @Summary Redeem an order
// @Description Transition a paid order to received; pickup happens here
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param orderId path int true "Order ID"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /student/orders/{orderId}/redeem [post]
func (s *OrderService) RedeemOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		SendErrorResponse(w, "Invalid order id", http.StatusBadRequest, nil)
		return
	}

	if err := s.Redeem(orderID, userID); err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			SendErrorResponse(w, "Order not found", http.StatusNotFound, nil)
		case errors.Is(err, ErrNotOwner):
			SendErrorResponse(w, "Order belongs to another user", http.StatusForbidden, nil)
		case errors.Is(err, ErrAlreadyRedeemed):
			SendErrorResponse(w, "Order already redeemed", http.StatusConflict, nil)
		default:
			log.Printf("[ORDER] Redeem failed for order %d, user %d: %v", orderID, userID, err)
			SendErrorResponse(w, "Failed to redeem order", http.StatusInternalServerError, nil)
		}
		return
	}

	log.Printf("[ORDER] Order %d redeemed by user %d", orderID, userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "Bon appetit!",
	})
}

// ListMyOrders lists the authenticated user's orders
// @Summary List own orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{orders=[]models.Order,count=int}
// @Router /student/orders [get]
func (s *OrderService) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, menu_item_id, kind, status, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		log.Printf("[ORDER] Failed to list orders for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch orders", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.MenuItemID, &o.Kind, &o.Status, &o.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch orders", http.StatusInternalServerError, nil)
			return
		}
		orders = append(orders, o)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"orders": orders,
		"count":  len(orders),
	})
}

// ServedOrders lists redeemed orders for kitchen reporting
// @Summary List served orders
// @Description Orders already handed out, with dish and student names
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{served=[]object,count=int}
// @Router /cook/served [get]
func (s *OrderService) ServedOrders(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT o.id, m.name, u.username, o.created_at
		FROM orders o
		JOIN menu_items m ON o.menu_item_id = m.id
		JOIN users u ON o.user_id = u.id
		WHERE o.status = $1
		ORDER BY o.created_at DESC`, models.OrderStatusReceived)
	if err != nil {
		log.Printf("[ORDER] Failed to list served orders: %v", err)
		SendErrorResponse(w, "Failed to fetch served orders", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	type servedRow struct {
		OrderID   int64     `json:"order_id"`
		Dish      string    `json:"dish"`
		Username  string    `json:"username"`
		CreatedAt time.Time `json:"created_at"`
	}

	served := []servedRow{}
	for rows.Next() {
		var row servedRow
		if err := rows.Scan(&row.OrderID, &row.Dish, &row.Username, &row.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch served orders", http.StatusInternalServerError, nil)
			return
		}
		served = append(served, row)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"served": served,
		"count":  len(served),
	})
}
