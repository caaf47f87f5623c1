package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/Munirmohammed/Ecommerce/cache"
	"github.com/Munirmohammed/Ecommerce/middleware"
	"github.com/Munirmohammed/Ecommerce/models"
	"github.com/Munirmohammed/Ecommerce/response"
	"github.com/Munirmohammed/Ecommerce/services"
)

func setupProductHandlerTest(t *testing.T) (sqlmock.Sqlmock, *sql.DB, *gin.Engine) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	logger := zaptest.NewLogger(t)
	svc := services.NewProductService(db, cache.Noop{}, time.Minute, logger)
	handler := NewProductHandler(svc, nil, logger)

	gin.SetMode(gin.TestMode)
	registerValidators()
	router := gin.New()
	router.GET("/products", handler.List)
	router.GET("/products/:id", handler.Get)
	admin := router.Group("/products", middleware.Auth(orderTestSecret), middleware.RequireRole(models.RoleAdmin))
	admin.POST("", handler.Create)
	admin.DELETE("/:id", handler.Delete)

	return mock, db, router
}

func productColumns() []string {
	return []string{"id", "name", "description", "price", "stock", "category", "image_url", "created_at"}
}

func TestListProducts_PaginatedEnvelope(t *testing.T) {
	mock, db, router := setupProductHandlerTest(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery(`SELECT id, name, description, price, stock, category, image_url, created_at FROM products`).
		WithArgs(5, 5).
		WillReturnRows(sqlmock.NewRows(productColumns()).
			AddRow("p1", "Wireless Mouse", "", 25.50, 10, "electronics", "", time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/products?page=2&limit=5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d (%s)", http.StatusOK, w.Code, w.Body.String())
	}

	var body response.PaginatedBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if body.PageNumber != 2 || body.PageSize != 5 || body.TotalSize != 42 {
		t.Errorf("Unexpected pagination fields: %+v", body)
	}
}

func TestListProducts_InvalidPage(t *testing.T) {
	mock, db, router := setupProductHandlerTest(t)
	defer db.Close()

	for _, q := range []string{"page=0", "page=abc", "limit=0", "limit=101"} {
		req := httptest.NewRequest(http.MethodGet, "/products?"+q, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Query %q: expected status %d, got %d", q, http.StatusBadRequest, w.Code)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unexpected database calls were made: %v", err)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	mock, db, router := setupProductHandlerTest(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, name, description, price, stock, category, image_url, created_at`).
		WithArgs("missing-id").
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/products/missing-id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status %d, got %d (%s)", http.StatusNotFound, w.Code, w.Body.String())
	}

	var body response.Body
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if body.Success || body.Message != "Product not found" {
		t.Errorf("Unexpected envelope: %+v", body)
	}
}

func TestCreateProduct_RequiresToken(t *testing.T) {
	mock, db, router := setupProductHandlerTest(t)
	defer db.Close()

	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unexpected database calls were made: %v", err)
	}
}

func TestCreateProduct_ForbiddenForUserRole(t *testing.T) {
	_, db, router := setupProductHandlerTest(t)
	defer db.Close()

	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signToken(t, orderTestUser, models.RoleUser))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected status %d, got %d (%s)", http.StatusForbidden, w.Code, w.Body.String())
	}
}

func TestCreateProduct_AdminCreated(t *testing.T) {
	mock, db, router := setupProductHandlerTest(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO products`).
		WithArgs(sqlmock.AnyArg(), "Wireless Mouse", "A compact wireless mouse", 25.50, 10, "electronics", "").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	payload := `{"name":"Wireless Mouse","description":"A compact wireless mouse","price":25.50,"stock":10,"category":"electronics"}`
	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signToken(t, orderTestUser, models.RoleAdmin))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d (%s)", http.StatusCreated, w.Code, w.Body.String())
	}

	var body struct {
		Success bool           `json:"success"`
		Data    models.Product `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if body.Data.Name != "Wireless Mouse" || body.Data.ID == "" {
		t.Errorf("Unexpected product payload: %+v", body.Data)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestDeleteProduct_ConflictWhenReferenced(t *testing.T) {
	mock, db, router := setupProductHandlerTest(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	req := httptest.NewRequest(http.MethodDelete, "/products/p1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, orderTestUser, models.RoleAdmin))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status %d, got %d (%s)", http.StatusConflict, w.Code, w.Body.String())
	}
}
