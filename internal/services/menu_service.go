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
	"github.com/go-redis/redis/v8"
)

const menuCacheKey = "menu:available"

// MenuService owns the menu catalog. Listing goes through a short-lived
// Redis cache; the TTL is short enough that purchases draining stock show
// up without explicit invalidation, menu writes invalidate eagerly.
type MenuService struct {
	db        *sql.DB
	redis     *redis.Client
	stock     *StockService
	cacheTTL  time.Duration
	validator *ValidationHelper
}

func NewMenuService(db *sql.DB, redisClient *redis.Client, stock *StockService, cacheTTL time.Duration) *MenuService {
	return &MenuService{
		db:        db,
		redis:     redisClient,
		stock:     stock,
		cacheTTL:  cacheTTL,
		validator: NewValidationHelper(),
	}
}

func (s *MenuService) fetchAvailable() ([]models.MenuItem, error) {
	rows, err := s.db.Query(`
		SELECT id, name, description, price, meal_type, available_qty, created_at
		FROM menu_items
		WHERE available_qty > 0
		ORDER BY meal_type, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Price,
			&item.MealType, &item.AvailableQty, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *MenuService) invalidateCache(r *http.Request) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(r.Context(), menuCacheKey).Err(); err != nil {
		log.Printf("[MENU] Cache invalidation failed: %v", err)
	}
}

// ListMenu lists available dishes
// @Summary List menu
// @Description Menu items with remaining stock, cached briefly in Redis
// @Tags menu
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{menu=[]models.MenuItem,count=int}
// @Router /student/menu [get]
func (s *MenuService) ListMenu(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		if cached, err := s.redis.Get(r.Context(), menuCacheKey).Bytes(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write(cached)
			return
		}
	}

	items, err := s.fetchAvailable()
	if err != nil {
		log.Printf("[MENU] Failed to fetch menu: %v", err)
		SendErrorResponse(w, "Failed to fetch menu", http.StatusInternalServerError, nil)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"menu":  items,
		"count": len(items),
	})
	if err != nil {
		SendErrorResponse(w, "Failed to fetch menu", http.StatusInternalServerError, nil)
		return
	}

	if s.redis != nil {
		if err := s.redis.Set(r.Context(), menuCacheKey, payload, s.cacheTTL).Err(); err != nil {
			log.Printf("[MENU] Cache write failed: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// AddMenuItem adds a dish to the menu
// @Summary Add menu item
// @Tags menu
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string,description=string,price=int64,meal_type=string,available_qty=int} true "Menu item"
// @Success 201 {object} models.MenuItem
// @Failure 400 {object} ErrorResponse
// @Router /cook/menu [post]
func (s *MenuService) AddMenuItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name" validate:"required,min=1,max=200"`
		Description  string `json:"description" validate:"max=1000"`
		Price        int64  `json:"price" validate:"required,gte=0"`
		MealType     string `json:"meal_type" validate:"required"`
		AvailableQty int    `json:"available_qty" validate:"gte=0"`
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

	if !models.IsValidMealType(req.MealType) {
		SendErrorResponse(w, "Unknown meal type", http.StatusBadRequest, nil)
		return
	}

	item := models.MenuItem{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		MealType:     req.MealType,
		AvailableQty: req.AvailableQty,
	}
	err := s.db.QueryRow(`
		INSERT INTO menu_items (name, description, price, meal_type, available_qty)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		req.Name, req.Description, req.Price, req.MealType, req.AvailableQty).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		log.Printf("[MENU] Failed to add menu item %q: %v", req.Name, err)
		SendErrorResponse(w, "Failed to add menu item", http.StatusInternalServerError, nil)
		return
	}

	s.invalidateCache(r)

	log.Printf("[MENU] Item %d added: %s (%d)", item.ID, item.Name, item.Price)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"item":    item,
	})
}

// RestockItem adds portions back to a menu item
// @Summary Restock item
// @Description Increase the available quantity of a dish
// @Tags menu
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param itemId path int true "Menu item ID"
// @Param request body object{count=int} true "Restock request"
// @Success 200 {object} object{success=bool,available=int}
// @Failure 404 {object} ErrorResponse
// @Router /cook/menu/{itemId}/restock [put]
func (s *MenuService) RestockItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil || itemID <= 0 {
		SendErrorResponse(w, "Invalid item id", http.StatusBadRequest, nil)
		return
	}

	var req struct {
		Count int `json:"count" validate:"required,gt=0"`
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

	if err := s.stock.Release(itemID, req.Count); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			SendErrorResponse(w, "Menu item not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[MENU] Restock failed for item %d: %v", itemID, err)
		SendErrorResponse(w, "Failed to restock item", http.StatusInternalServerError, nil)
		return
	}

	s.invalidateCache(r)

	available, err := s.stock.GetStock(itemID)
	if err != nil {
		log.Printf("[MENU] Stock read after restock failed for item %d: %v", itemID, err)
	}

	log.Printf("[MENU] Item %d restocked by %d", itemID, req.Count)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":   true,
		"available": available,
	})
}
