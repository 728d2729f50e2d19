package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/canteenpay/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
)

// QRService issues short-lived meal tickets: a QR code a student shows at
// the counter instead of pressing the redeem button. The ticket carries the
// order and its owner; processing it drives the same redeem transition.
type QRService struct {
	db            *sql.DB
	redis         *redis.Client
	ticketTimeout time.Duration
}

func NewQRService(db *sql.DB, redis *redis.Client, ticketTimeout time.Duration) *QRService {
	return &QRService{
		db:            db,
		redis:         redis,
		ticketTimeout: ticketTimeout,
	}
}

// Ticket is the decoded payload of a meal ticket QR code.
type Ticket struct {
	OrderID   int64  `json:"orderId"`
	UserID    int    `json:"userId"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
}

// GenerateTicket creates a QR ticket for one of the user's paid orders.
// The encoded payload is stored in Redis under a nonce so a ticket cannot
// be replayed after processing or after it expires.
func (s *QRService) GenerateTicket(ctx context.Context, userID int, orderID int64) (string, string, error) {
	if s.redis == nil {
		return "", "", ErrTicketsUnavailable
	}

	var ownerID int
	var status string
	err := s.db.QueryRow(`SELECT user_id, status FROM orders WHERE id = $1`, orderID).Scan(&ownerID, &status)
	if err == sql.ErrNoRows {
		return "", "", ErrOrderNotFound
	}
	if err != nil {
		return "", "", err
	}
	if ownerID != userID {
		return "", "", ErrNotOwner
	}
	if status != models.OrderStatusPaid {
		return "", "", ErrAlreadyRedeemed
	}

	ticket := Ticket{
		OrderID:   orderID,
		UserID:    userID,
		Timestamp: time.Now().Unix(),
		Nonce:     s.generateNonce(),
	}

	jsonData, err := json.Marshal(ticket)
	if err != nil {
		return "", "", err
	}

	code := base64.URLEncoding.EncodeToString(jsonData)

	key := fmt.Sprintf("ticket:%s", code)
	if err := s.redis.Set(ctx, key, jsonData, s.ticketTimeout).Err(); err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	qrImage := base64.StdEncoding.EncodeToString(buf.Bytes())

	return code, qrImage, nil
}

// ProcessTicket resolves a scanned ticket without consuming it. The caller
// redeems the returned order on behalf of the ticket's owner and calls
// ConsumeTicket once that succeeds; a transient redeem failure leaves the
// ticket valid for re-presentation.
func (s *QRService) ProcessTicket(ctx context.Context, code string) (*Ticket, error) {
	if s.redis == nil {
		return nil, ErrTicketsUnavailable
	}

	key := fmt.Sprintf("ticket:%s", code)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrTicketInvalid
	}
	if err != nil {
		return nil, err
	}

	var ticket Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return nil, ErrTicketInvalid
	}

	return &ticket, nil
}

// ConsumeTicket removes a processed ticket so it cannot be replayed.
func (s *QRService) ConsumeTicket(ctx context.Context, code string) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, fmt.Sprintf("ticket:%s", code))
}

func (s *QRService) generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
