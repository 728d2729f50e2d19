package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/canteenpay/backend/internal/models"
	"github.com/go-chi/chi/v5"
)

// ProcurementService tracks purchase requests raised by cooks and their
// approval by administrators. Approval is a one-way pending -> approved
// transition; only approved requests feed the expense side of reporting.
type ProcurementService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewProcurementService(db *sql.DB) *ProcurementService {
	return &ProcurementService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// Approve transitions a pending request to approved, exactly once. A repeat
// call fails with ErrAlreadyApproved instead of silently succeeding, so a
// request can never be double-counted in expense totals.
func (s *ProcurementService) Approve(requestID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRow(`
		SELECT status
		FROM procurement_requests
		WHERE id = $1
		FOR UPDATE`, requestID).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrRequestNotFound
	}
	if err != nil {
		return err
	}

	if status != models.RequestStatusPending {
		return ErrAlreadyApproved
	}

	if _, err := tx.Exec(`UPDATE procurement_requests SET status = $1 WHERE id = $2`,
		models.RequestStatusApproved, requestID); err != nil {
		return err
	}

	return tx.Commit()
}

// CreateRequest files a new procurement request
// @Summary Create procurement request
// @Description Cook requests products to be purchased
// @Tags procurement
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{item_name=string,quantity=int} true "Procurement request"
// @Success 201 {object} models.ProcurementRequest
// @Failure 400 {object} ErrorResponse
// @Router /cook/requests [post]
func (s *ProcurementService) CreateRequest(w http.ResponseWriter, r *http.Request) {
	cookID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		ItemName string `json:"item_name" validate:"required,min=1,max=200"`
		Quantity int    `json:"quantity" validate:"required,gt=0"`
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

	request := models.ProcurementRequest{
		CookID:   cookID,
		ItemName: req.ItemName,
		Quantity: req.Quantity,
		Status:   models.RequestStatusPending,
	}
	err := s.db.QueryRow(`
		INSERT INTO procurement_requests (cook_id, item_name, quantity, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		cookID, req.ItemName, req.Quantity, models.RequestStatusPending).Scan(&request.ID, &request.CreatedAt)
	if err != nil {
		log.Printf("[PROCUREMENT] Failed to create request for cook %d: %v", cookID, err)
		SendErrorResponse(w, "Failed to create request", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[PROCUREMENT] Request %d created by cook %d: %s x%d",
		request.ID, cookID, req.ItemName, req.Quantity)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"request": request,
	})
}

// ListPending lists requests awaiting approval
// @Summary List pending requests
// @Tags procurement
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{requests=[]models.ProcurementRequest,count=int}
// @Router /admin/requests [get]
func (s *ProcurementService) ListPending(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT id, cook_id, item_name, quantity, status, created_at
		FROM procurement_requests
		WHERE status = $1
		ORDER BY created_at`, models.RequestStatusPending)
	if err != nil {
		log.Printf("[PROCUREMENT] Failed to list pending requests: %v", err)
		SendErrorResponse(w, "Failed to fetch requests", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	requests := []models.ProcurementRequest{}
	for rows.Next() {
		var pr models.ProcurementRequest
		if err := rows.Scan(&pr.ID, &pr.CookID, &pr.ItemName, &pr.Quantity, &pr.Status, &pr.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch requests", http.StatusInternalServerError, nil)
			return
		}
		requests = append(requests, pr)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"requests": requests,
		"count":    len(requests),
	})
}

// ApproveRequest approves a procurement request
// @Summary Approve request
// @Description Approve a pending procurement request, exactly once
// @Tags procurement
// @Produce json
// @Security BearerAuth
// @Param requestId path int true "Request ID"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/requests/{requestId}/approve [put]
func (s *ProcurementService) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := strconv.ParseInt(chi.URLParam(r, "requestId"), 10, 64)
	if err != nil || requestID <= 0 {
		SendErrorResponse(w, "Invalid request id", http.StatusBadRequest, nil)
		return
	}

	if err := s.Approve(requestID); err != nil {
		switch {
		case errors.Is(err, ErrRequestNotFound):
			SendErrorResponse(w, "Request not found", http.StatusNotFound, nil)
		case errors.Is(err, ErrAlreadyApproved):
			SendErrorResponse(w, "Request already approved", http.StatusConflict, nil)
		default:
			log.Printf("[PROCUREMENT] Approve failed for request %d: %v", requestID, err)
			SendErrorResponse(w, "Failed to approve request", http.StatusInternalServerError, nil)
		}
		return
	}

	log.Printf("[PROCUREMENT] Request %d approved", requestID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "Request approved",
	})
}
