package services

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/canteenpay/backend/internal/models"
	"github.com/go-chi/chi/v5"
)

// ReviewService is plain single-table CRUD; no concurrency hazard here.
type ReviewService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewReviewService(db *sql.DB) *ReviewService {
	return &ReviewService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// AddReview leaves a review for a dish
// @Summary Add review
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{menu_item_id=int64,rating=int,comment=string} true "Review"
// @Success 201 {object} models.Review
// @Failure 400 {object} ErrorResponse
// @Router /student/reviews [post]
func (s *ReviewService) AddReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		MenuItemID int64  `json:"menu_item_id" validate:"required,gt=0"`
		Rating     int    `json:"rating" validate:"required,min=1,max=5"`
		Comment    string `json:"comment" validate:"max=1000"`
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

	review := models.Review{
		UserID:     userID,
		MenuItemID: req.MenuItemID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}
	err := s.db.QueryRow(`
		INSERT INTO reviews (user_id, menu_item_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		userID, req.MenuItemID, req.Rating, req.Comment).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		log.Printf("[REVIEW] Failed to add review for item %d: %v", req.MenuItemID, err)
		SendErrorResponse(w, "Failed to add review", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"review":  review,
	})
}

// ListReviews lists reviews for a dish
// @Summary List reviews
// @Tags reviews
// @Produce json
// @Security BearerAuth
// @Param itemId path int true "Menu item ID"
// @Success 200 {object} object{reviews=[]models.Review,count=int}
// @Router /student/reviews/{itemId} [get]
func (s *ReviewService) ListReviews(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil || itemID <= 0 {
		SendErrorResponse(w, "Invalid item id", http.StatusBadRequest, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT r.id, r.user_id, u.username, r.menu_item_id, r.rating, r.comment, r.created_at
		FROM reviews r
		JOIN users u ON r.user_id = u.id
		WHERE r.menu_item_id = $1
		ORDER BY r.created_at DESC`, itemID)
	if err != nil {
		log.Printf("[REVIEW] Failed to list reviews for item %d: %v", itemID, err)
		SendErrorResponse(w, "Failed to fetch reviews", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.Username, &rv.MenuItemID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch reviews", http.StatusInternalServerError, nil)
			return
		}
		reviews = append(reviews, rv)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"reviews": reviews,
		"count":   len(reviews),
	})
}
