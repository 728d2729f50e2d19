package services

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestStockService_ReserveTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewStockService(db)

	t.Run("successful reservation", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, name, price, available_qty FROM menu_items WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "available_qty"}).
				AddRow(10, "Borscht", 150, 5))
		mock.ExpectExec("UPDATE menu_items SET available_qty = available_qty - \\$1").
			WithArgs(1, int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)

		item, err := service.ReserveTx(tx, 10, 1)
		assert.NoError(t, err)
		assert.Equal(t, int64(150), item.Price)
		assert.Equal(t, 4, item.AvailableQty)

		tx.Rollback()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("out of stock", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, name, price, available_qty FROM menu_items WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "available_qty"}).
				AddRow(10, "Borscht", 150, 0))
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)

		_, err = service.ReserveTx(tx, 10, 1)
		assert.ErrorIs(t, err, ErrOutOfStock)

		tx.Rollback()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("item not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, name, price, available_qty FROM menu_items WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(404)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)

		_, err = service.ReserveTx(tx, 404, 1)
		assert.ErrorIs(t, err, ErrItemNotFound)

		tx.Rollback()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent drain loses the guard", func(t *testing.T) {
		// The locked read saw stock, but the guarded update matched no row.
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, name, price, available_qty FROM menu_items WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "available_qty"}).
				AddRow(10, "Borscht", 150, 1))
		mock.ExpectExec("UPDATE menu_items SET available_qty = available_qty - \\$1").
			WithArgs(1, int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)

		_, err = service.ReserveTx(tx, 10, 1)
		assert.ErrorIs(t, err, ErrOutOfStock)

		tx.Rollback()
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStockService_Release(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewStockService(db)

	t.Run("successful release", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, name, price, available_qty FROM menu_items WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "available_qty"}).
				AddRow(10, "Borscht", 150, 2))
		mock.ExpectExec("UPDATE menu_items SET available_qty = available_qty \\+ \\$1").
			WithArgs(5, int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.Release(10, 5)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("release on missing item", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, name, price, available_qty FROM menu_items WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(404)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := service.Release(404, 5)
		assert.ErrorIs(t, err, ErrItemNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStockService_StockEnquiry(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewStockService(db)

	t.Run("successful enquiry", func(t *testing.T) {
		mock.ExpectQuery("SELECT available_qty FROM menu_items WHERE id = \\$1").
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"available_qty"}).AddRow(7))

		r := chi.NewRouter()
		r.Get("/menu/{itemId}/stock", service.StockEnquiry)

		req := httptest.NewRequest("GET", "/menu/10/stock", nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, float64(7), response["available"])
	})

	t.Run("item not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT available_qty FROM menu_items WHERE id = \\$1").
			WithArgs(int64(404)).
			WillReturnError(sql.ErrNoRows)

		r := chi.NewRouter()
		r.Get("/menu/{itemId}/stock", service.StockEnquiry)

		req := httptest.NewRequest("GET", "/menu/404/stock", nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid item id", func(t *testing.T) {
		r := chi.NewRouter()
		r.Get("/menu/{itemId}/stock", service.StockEnquiry)

		req := httptest.NewRequest("GET", "/menu/abc/stock", nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
