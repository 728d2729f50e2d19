package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestLedgerService_DebitTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)

	t.Run("successful debit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT user_id, balance, version, updated_at FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "version", "updated_at"}).
				AddRow(1, 500, 3, time.Now()))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs("tx-debit-1", 1, int64(-200), "DEBIT", int64(300), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE accounts SET balance = \\$1").
			WithArgs(int64(300), sqlmock.AnyArg(), 1, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)

		err = service.DebitTx(tx, 1, "tx-debit-1", 200)
		assert.NoError(t, err)

		tx.Rollback()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT user_id, balance, version, updated_at FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "version", "updated_at"}).
				AddRow(1, 100, 1, time.Now()))
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)

		err = service.DebitTx(tx, 1, "tx-debit-2", 200)
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		tx.Rollback()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("account not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT user_id, balance, version, updated_at FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs(99).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)

		err = service.DebitTx(tx, 99, "tx-debit-3", 200)
		assert.ErrorIs(t, err, ErrAccountNotFound)

		tx.Rollback()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("optimistic lock failure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT user_id, balance, version, updated_at FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "version", "updated_at"}).
				AddRow(1, 500, 3, time.Now()))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs("tx-debit-4", 1, int64(-200), "DEBIT", int64(300), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE accounts SET balance = \\$1").
			WithArgs(int64(300), sqlmock.AnyArg(), 1, 3).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)

		err = service.DebitTx(tx, 1, "tx-debit-4", 200)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "optimistic lock failed")

		tx.Rollback()
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_Credit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)

	t.Run("successful credit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT user_id, balance, version, updated_at FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "version", "updated_at"}).
				AddRow(1, 100, 1, time.Now()))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs("tx-credit-1", 1, int64(500), "CREDIT", int64(600), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE accounts SET balance = \\$1").
			WithArgs(int64(600), sqlmock.AnyArg(), 1, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.Credit(1, "tx-credit-1", 500)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("credit to missing account", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT user_id, balance, version, updated_at FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs(42).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := service.Credit(42, "tx-credit-2", 500)
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_GetBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)

	t.Run("existing account", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts WHERE user_id = \\$1").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(750))

		balance, err := service.GetBalance(1)
		assert.NoError(t, err)
		assert.Equal(t, int64(750), balance)
	})

	t.Run("missing account", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts WHERE user_id = \\$1").
			WithArgs(99).
			WillReturnError(sql.ErrNoRows)

		_, err := service.GetBalance(99)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestLedgerService_BalanceEnquiry(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)

	t.Run("successful enquiry", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts WHERE user_id = \\$1").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(1200))

		req := httptest.NewRequest("GET", "/balance", nil)
		req = req.WithContext(context.WithValue(req.Context(), "userID", 1))
		w := httptest.NewRecorder()

		service.BalanceEnquiry(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, float64(1200), response["balance"])
	})

	t.Run("no user in context", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/balance", nil)
		w := httptest.NewRecorder()

		service.BalanceEnquiry(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("account not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts WHERE user_id = \\$1").
			WithArgs(7).
			WillReturnError(sql.ErrNoRows)

		req := httptest.NewRequest("GET", "/balance", nil)
		req = req.WithContext(context.WithValue(req.Context(), "userID", 7))
		w := httptest.NewRecorder()

		service.BalanceEnquiry(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestLedgerService_TopUp(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)

	t.Run("successful top-up", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT user_id, balance, version, updated_at FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "version", "updated_at"}).
				AddRow(1, 0, 1, time.Now()))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), 1, int64(1000), "CREDIT", int64(1000), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE accounts SET balance = \\$1").
			WithArgs(int64(1000), sqlmock.AnyArg(), 1, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery("SELECT balance FROM accounts WHERE user_id = \\$1").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(1000))

		body, _ := json.Marshal(map[string]interface{}{"user_id": 1, "amount": 1000})
		req := httptest.NewRequest("POST", "/admin/topup", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.TopUp(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, true, response["success"])
		assert.Equal(t, float64(1000), response["balance"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid request body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/admin/topup", bytes.NewBuffer([]byte("invalid")))
		w := httptest.NewRecorder()

		service.TopUp(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("amount above the cap rejected", func(t *testing.T) {
		service.SetMaxTopUp(5000)
		defer service.SetMaxTopUp(0)

		body, _ := json.Marshal(map[string]interface{}{"user_id": 1, "amount": 10000})
		req := httptest.NewRequest("POST", "/admin/topup", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.TopUp(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{"user_id": 1, "amount": -50})
		req := httptest.NewRequest("POST", "/admin/topup", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.TopUp(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
