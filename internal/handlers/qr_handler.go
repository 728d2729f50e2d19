package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/canteenpay/backend/internal/services"
)

type QRHandler struct {
	service   *services.QRService
	orders    *services.OrderService
	validator *services.ValidationHelper
}

func NewQRHandler(service *services.QRService, orders *services.OrderService) *QRHandler {
	return &QRHandler{
		service:   service,
		orders:    orders,
		validator: services.NewValidationHelper(),
	}
}

// GenerateTicket generates a meal ticket QR code
// @Summary Generate meal ticket
// @Description Generate a QR ticket for one of the student's paid orders
// @Tags QR
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{order_id=int64} true "Ticket request"
// @Success 200 {object} object{ticket=string,qrImage=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /student/tickets [post]
func (h *QRHandler) GenerateTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		OrderID int64 `json:"order_id" validate:"required,gt=0"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	ticket, qrImage, err := h.service.GenerateTicket(r.Context(), userID, req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			services.SendErrorResponse(w, "Order not found", http.StatusNotFound, nil)
		case errors.Is(err, services.ErrNotOwner):
			services.SendErrorResponse(w, "Order belongs to another user", http.StatusForbidden, nil)
		case errors.Is(err, services.ErrAlreadyRedeemed):
			services.SendErrorResponse(w, "Order already redeemed", http.StatusConflict, nil)
		case errors.Is(err, services.ErrTicketsUnavailable):
			services.SendErrorResponse(w, "Ticket service unavailable", http.StatusServiceUnavailable, nil)
		default:
			log.Printf("[QR] Ticket generation failed for order %d: %v", req.OrderID, err)
			services.SendErrorResponse(w, "Failed to generate ticket", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"ticket":  ticket,
		"qrImage": qrImage,
	})
}

// ProcessTicket redeems an order from a scanned ticket
// @Summary Process meal ticket
// @Description Cook scans a student's QR ticket; the order is redeemed on the owner's behalf
// @Tags QR
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{ticket=string} true "Scanned ticket"
// @Success 200 {object} object{success=bool,orderId=int64}
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /cook/tickets/process [post]
func (h *QRHandler) ProcessTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticket string `json:"ticket" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	ticket, err := h.service.ProcessTicket(r.Context(), req.Ticket)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTicketInvalid):
			services.SendErrorResponse(w, "Invalid or expired ticket", http.StatusBadRequest, nil)
		case errors.Is(err, services.ErrTicketsUnavailable):
			services.SendErrorResponse(w, "Ticket service unavailable", http.StatusServiceUnavailable, nil)
		default:
			log.Printf("[QR] Ticket lookup failed: %v", err)
			services.SendErrorResponse(w, "Failed to process ticket", http.StatusInternalServerError, nil)
		}
		return
	}

	// The ticket proves the owner asked for redemption; redeem as the owner.
	// The ticket stays in Redis until the redeem commits, so a transient
	// failure here lets the cook scan it again.
	if err := h.orders.Redeem(ticket.OrderID, ticket.UserID); err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			services.SendErrorResponse(w, "Order not found", http.StatusNotFound, nil)
		case errors.Is(err, services.ErrAlreadyRedeemed):
			services.SendErrorResponse(w, "Order already redeemed", http.StatusConflict, nil)
		default:
			log.Printf("[QR] Redeem via ticket failed for order %d: %v", ticket.OrderID, err)
			services.SendErrorResponse(w, "Failed to redeem order", http.StatusInternalServerError, nil)
		}
		return
	}

	h.service.ConsumeTicket(r.Context(), req.Ticket)

	log.Printf("[QR] Order %d redeemed via ticket", ticket.OrderID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"orderId": ticket.OrderID,
		"message": "Bon appetit!",
	})
}
