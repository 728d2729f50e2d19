package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"github.com/canteenpay/backend/internal/models"
)

// ReportService is a read-only fold over orders and procurement requests.
type ReportService struct {
	db *sql.DB
}

func NewReportService(db *sql.DB) *ReportService {
	return &ReportService{db: db}
}

// Stats returns revenue statistics
// @Summary Revenue statistics
// @Description Total orders sold and revenue earned
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{total_orders=int,total_revenue=int64}
// @Router /admin/stats [get]
func (s *ReportService) Stats(w http.ResponseWriter, r *http.Request) {
	var totalOrders int
	var totalRevenue sql.NullInt64
	err := s.db.QueryRow(`
		SELECT COUNT(*), SUM(m.price)
		FROM orders o
		JOIN menu_items m ON o.menu_item_id = m.id`).Scan(&totalOrders, &totalRevenue)
	if err != nil {
		log.Printf("[REPORT] Stats query failed: %v", err)
		SendErrorResponse(w, "Failed to compute stats", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"total_orders":  totalOrders,
		"total_revenue": totalRevenue.Int64,
	})
}

// DishesReport returns per-dish sales
// @Summary Per-dish report
// @Description How often each dish was bought and how much it earned
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{report=[]object}
// @Router /admin/dishes-report [get]
func (s *ReportService) DishesReport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT m.name, COUNT(o.id), SUM(m.price)
		FROM orders o
		JOIN menu_items m ON o.menu_item_id = m.id
		GROUP BY m.id, m.name
		ORDER BY COUNT(o.id) DESC`)
	if err != nil {
		log.Printf("[REPORT] Dishes report query failed: %v", err)
		SendErrorResponse(w, "Failed to compute report", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	type dishRow struct {
		DishName     string `json:"dish_name"`
		QuantitySold int    `json:"quantity_sold"`
		TotalRevenue int64  `json:"total_revenue"`
	}

	report := []dishRow{}
	for rows.Next() {
		var row dishRow
		if err := rows.Scan(&row.DishName, &row.QuantitySold, &row.TotalRevenue); err != nil {
			SendErrorResponse(w, "Failed to compute report", http.StatusInternalServerError, nil)
			return
		}
		report = append(report, row)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"report": report,
	})
}

// Expenses returns the expense fold over approved procurement only.
// Pending requests are never included, and since approval happens at most
// once per request nothing can be counted twice.
// @Summary Expense report
// @Description Approved procurement requests grouped by item
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{expenses=[]object,total_requests=int}
// @Router /admin/expenses [get]
func (s *ReportService) Expenses(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT item_name, COUNT(*), SUM(quantity)
		FROM procurement_requests
		WHERE status = $1
		GROUP BY item_name
		ORDER BY item_name`, models.RequestStatusApproved)
	if err != nil {
		log.Printf("[REPORT] Expenses query failed: %v", err)
		SendErrorResponse(w, "Failed to compute expenses", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	type expenseRow struct {
		ItemName      string `json:"item_name"`
		Requests      int    `json:"requests"`
		TotalQuantity int    `json:"total_quantity"`
	}

	expenses := []expenseRow{}
	total := 0
	for rows.Next() {
		var row expenseRow
		if err := rows.Scan(&row.ItemName, &row.Requests, &row.TotalQuantity); err != nil {
			SendErrorResponse(w, "Failed to compute expenses", http.StatusInternalServerError, nil)
			return
		}
		total += row.Requests
		expenses = append(expenses, row)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"expenses":       expenses,
		"total_requests": total,
	})
}
