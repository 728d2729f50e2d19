package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/canteenpay/backend/internal/models"
	"github.com/google/uuid"
)

// LedgerService owns per-user balances. Every mutation goes through
// DebitTx/CreditTx so a balance can never be observed negative, and every
// change leaves an append-only row in ledger_entries.
type LedgerService struct {
	db        *sql.DB
	validator *ValidationHelper
	maxTopUp  int64
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// SetMaxTopUp caps single top-up amounts. Zero means no cap.
func (s *LedgerService) SetMaxTopUp(max int64) {
	s.maxTopUp = max
}

// DebitTx subtracts amount from the user's balance inside the caller's
// transaction. The account row is locked FOR UPDATE, so concurrent debits
// on the same account serialize while other accounts stay untouched.
// Returns ErrInsufficientFunds without modifying anything when the balance
// cannot cover the amount.
func (s *LedgerService) DebitTx(tx *sql.Tx, userID int, transactionID string, amount int64) error {
	account, err := s.lockAccount(tx, userID)
	if err != nil {
		return err
	}

	if account.Balance < amount {
		return ErrInsufficientFunds
	}

	newBalance := account.Balance - amount
	if err := s.createLedgerEntry(tx, transactionID, userID, -amount, "DEBIT", newBalance); err != nil {
		return err
	}

	return s.updateAccountBalance(tx, userID, newBalance, account.Version)
}

// CreditTx adds amount to the user's balance inside the caller's transaction.
// Always succeeds for a non-negative amount on an existing account.
func (s *LedgerService) CreditTx(tx *sql.Tx, userID int, transactionID string, amount int64) error {
	account, err := s.lockAccount(tx, userID)
	if err != nil {
		return err
	}

	newBalance := account.Balance + amount
	if err := s.createLedgerEntry(tx, transactionID, userID, amount, "CREDIT", newBalance); err != nil {
		return err
	}

	return s.updateAccountBalance(tx, userID, newBalance, account.Version)
}

// Credit wraps CreditTx in its own transaction. Used for top-ups.
func (s *LedgerService) Credit(userID int, transactionID string, amount int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.CreditTx(tx, userID, transactionID, amount); err != nil {
		return err
	}

	return tx.Commit()
}

// GetBalance returns the current balance for display purposes.
func (s *LedgerService) GetBalance(userID int) (int64, error) {
	var balance int64
	err := s.db.QueryRow(`SELECT balance FROM accounts WHERE user_id = $1`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *LedgerService) lockAccount(tx *sql.Tx, userID int) (*models.Account, error) {
	var account models.Account
	err := tx.QueryRow(`
		SELECT user_id, balance, version, updated_at
		FROM accounts
		WHERE user_id = $1
		FOR UPDATE`, userID).Scan(&account.UserID, &account.Balance, &account.Version, &account.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *LedgerService) createLedgerEntry(tx *sql.Tx, transactionID string, userID int, amount int64, entryType string, balance int64) error {
	_, err := tx.Exec(`
		INSERT INTO ledger_entries (transaction_id, user_id, amount, entry_type, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		transactionID, userID, amount, entryType, balance, time.Now())
	return err
}

func (s *LedgerService) updateAccountBalance(tx *sql.Tx, userID int, newBalance int64, version int) error {
	result, err := tx.Exec(`
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE user_id = $3 AND version = $4`,
		newBalance, time.Now(), userID, version)

	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("optimistic lock failed for account %d", userID)
	}

	return nil
}

// BalanceEnquiry returns the authenticated user's balance
// @Summary Get balance
// @Description Retrieve the stored-value balance of the authenticated user
// @Tags ledger
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{balance=int64}
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /balance [get]
func (s *LedgerService) BalanceEnquiry(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	balance, err := s.GetBalance(userID)
	if err != nil {
		if err == ErrAccountNotFound {
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[LEDGER] Balance enquiry failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to fetch balance", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"userId":  userID,
		"balance": balance,
	})
}

// TopUp credits a user's balance
// @Summary Top up balance
// @Description Credit a student's stored-value balance (admin only)
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{user_id=int,amount=int64} true "Top-up request"
// @Success 200 {object} object{success=bool,balance=int64}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/topup [post]
func (s *LedgerService) TopUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int   `json:"user_id" validate:"required,gt=0"`
		Amount int64 `json:"amount" validate:"required,gt=0"`
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

	if s.maxTopUp > 0 && req.Amount > s.maxTopUp {
		SendErrorResponse(w, "Amount exceeds top-up limit", http.StatusBadRequest, nil)
		return
	}

	transactionID := uuid.NewString()
	if err := s.Credit(req.UserID, transactionID, req.Amount); err != nil {
		if err == ErrAccountNotFound {
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[LEDGER] Top-up failed for user %d: %v", req.UserID, err)
		SendErrorResponse(w, "Failed to top up balance", http.StatusInternalServerError, nil)
		return
	}

	balance, err := s.GetBalance(req.UserID)
	if err != nil {
		log.Printf("[LEDGER] Balance read after top-up failed for user %d: %v", req.UserID, err)
	}

	log.Printf("[LEDGER] Top-up %d -> user %d (tx %s)", req.Amount, req.UserID, transactionID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":       true,
		"transactionId": transactionID,
		"balance":       balance,
	})
}
