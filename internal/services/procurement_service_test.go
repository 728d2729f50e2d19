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
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestProcurementService_Approve(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewProcurementService(db)

	t.Run("approve pending request", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM procurement_requests WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
		mock.ExpectExec("UPDATE procurement_requests SET status = \\$1 WHERE id = \\$2").
			WithArgs("approved", int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.Approve(7)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second approval is rejected", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM procurement_requests WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))
		mock.ExpectRollback()

		err := service.Approve(7)
		assert.ErrorIs(t, err, ErrAlreadyApproved)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("request not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM procurement_requests WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(404)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := service.Approve(404)
		assert.ErrorIs(t, err, ErrRequestNotFound)
	})
}

func TestProcurementService_CreateRequest(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewProcurementService(db)

	t.Run("successful request", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO procurement_requests").
			WithArgs(3, "Potatoes", 50, "pending").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, time.Now()))

		body, _ := json.Marshal(map[string]interface{}{"item_name": "Potatoes", "quantity": 50})
		req := httptest.NewRequest("POST", "/cook/requests", bytes.NewBuffer(body))
		req = req.WithContext(context.WithValue(req.Context(), "userID", 3))
		w := httptest.NewRecorder()

		service.CreateRequest(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, true, response["success"])
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{"item_name": "Potatoes", "quantity": 0})
		req := httptest.NewRequest("POST", "/cook/requests", bytes.NewBuffer(body))
		req = req.WithContext(context.WithValue(req.Context(), "userID", 3))
		w := httptest.NewRecorder()

		service.CreateRequest(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProcurementService_ApproveRequest(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewProcurementService(db)

	approveVia := func(path string) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Put("/admin/requests/{requestId}/approve", service.ApproveRequest)
		req := httptest.NewRequest("PUT", path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("successful approval", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM procurement_requests WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
		mock.ExpectExec("UPDATE procurement_requests SET status = \\$1 WHERE id = \\$2").
			WithArgs("approved", int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := approveVia("/admin/requests/7/approve")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("already approved", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM procurement_requests WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))
		mock.ExpectRollback()

		w := approveVia("/admin/requests/7/approve")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM procurement_requests WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(404)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		w := approveVia("/admin/requests/404/approve")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid request id", func(t *testing.T) {
		w := approveVia("/admin/requests/abc/approve")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
