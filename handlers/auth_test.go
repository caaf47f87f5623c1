package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/Munirmohammed/Ecommerce/models"
	"github.com/Munirmohammed/Ecommerce/response"
	"github.com/Munirmohammed/Ecommerce/services"
)

func setupAuthTest(t *testing.T) (sqlmock.Sqlmock, *sql.DB, *gin.Engine) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	logger := zaptest.NewLogger(t)
	svc := services.NewAuthService(db, "test-secret", time.Hour, logger)
	handler := NewAuthHandler(svc, logger)

	gin.SetMode(gin.TestMode)
	registerValidators()
	router := gin.New()
	router.POST("/register", handler.Register)
	router.POST("/login", handler.Login)

	return mock, db, router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegister_Created(t *testing.T) {
	mock, db, router := setupAuthTest(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM users WHERE email = \$1`).
		WithArgs("alice@x.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT id FROM users WHERE username = \$1`).
		WithArgs("alice").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "alice", "alice@x.com", sqlmock.AnyArg(), models.RoleUser).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	w := postJSON(t, router, "/register", models.RegisterRequest{
		Username: "alice",
		Email:    "alice@x.com",
		Password: "Str0ng!Pass",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d (%s)", http.StatusCreated, w.Code, w.Body.String())
	}

	var body response.Body
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if !body.Success {
		t.Errorf("Expected success envelope, got %+v", body)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestRegister_WeakPasswordRejectedBeforeStore(t *testing.T) {
	mock, db, router := setupAuthTest(t)
	defer db.Close()

	w := postJSON(t, router, "/register", models.RegisterRequest{
		Username: "alice",
		Email:    "alice@x.com",
		Password: "weakpass",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var body response.Body
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if body.Success || len(body.Errors) == 0 {
		t.Errorf("Expected failure envelope with errors, got %+v", body)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unexpected database calls were made: %v", err)
	}
}

func TestRegister_Conflict(t *testing.T) {
	mock, db, router := setupAuthTest(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM users WHERE email = \$1`).
		WithArgs("alice@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	w := postJSON(t, router, "/register", models.RegisterRequest{
		Username: "alice",
		Email:    "alice@x.com",
		Password: "Str0ng!Pass",
	})

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status %d, got %d", http.StatusConflict, w.Code)
	}
}

func TestLogin_OK(t *testing.T) {
	mock, db, router := setupAuthTest(t)
	defer db.Close()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Str0ng!Pass"), bcrypt.DefaultCost)
	mock.ExpectQuery(`SELECT id, username, email, password_hash, role, created_at FROM users WHERE email = \$1`).
		WithArgs("alice@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "role", "created_at"}).
			AddRow("user-1", "alice", "alice@x.com", string(hash), "user", time.Now()))

	w := postJSON(t, router, "/login", models.LoginRequest{
		Email:    "alice@x.com",
		Password: "Str0ng!Pass",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d (%s)", http.StatusOK, w.Code, w.Body.String())
	}

	var body struct {
		Success bool                 `json:"success"`
		Data    models.LoginResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if body.Data.Token == "" || body.Data.User.Email != "alice@x.com" {
		t.Errorf("Unexpected login payload: %+v", body.Data)
	}
}

func TestLogin_FailureShapeIdentical(t *testing.T) {
	mock, db, router := setupAuthTest(t)
	defer db.Close()

	// Unknown email.
	mock.ExpectQuery(`SELECT id, username, email, password_hash, role, created_at FROM users WHERE email = \$1`).
		WithArgs("ghost@x.com").
		WillReturnError(sql.ErrNoRows)
	unknown := postJSON(t, router, "/login", models.LoginRequest{Email: "ghost@x.com", Password: "whatever1!A"})

	// Known email, wrong password.
	hash, _ := bcrypt.GenerateFromPassword([]byte("Correct!Pass1"), bcrypt.DefaultCost)
	mock.ExpectQuery(`SELECT id, username, email, password_hash, role, created_at FROM users WHERE email = \$1`).
		WithArgs("alice@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "role", "created_at"}).
			AddRow("user-1", "alice", "alice@x.com", string(hash), "user", time.Now()))
	wrong := postJSON(t, router, "/login", models.LoginRequest{Email: "alice@x.com", Password: "Wrong!Pass1"})

	if unknown.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for both, got %d and %d", unknown.Code, wrong.Code)
	}
	if unknown.Body.String() != wrong.Body.String() {
		t.Errorf("Login failure responses must be identical: %q vs %q", unknown.Body.String(), wrong.Body.String())
	}
}
