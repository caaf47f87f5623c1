package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Munirmohammed/Ecommerce/apperr"
	"github.com/Munirmohammed/Ecommerce/models"
)

const uniqueViolation = "23505"

type AuthService struct {
	db        *sql.DB
	logger    *zap.Logger
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthService(db *sql.DB, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{db: db, logger: logger, jwtSecret: []byte(jwtSecret), tokenTTL: tokenTTL}
}

// Register stores a new user with a bcrypt credential. Email and
// username uniqueness are probed independently so the caller learns
// which one is taken; the unique indexes backstop the race between
// probe and insert.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	ctx, span := otel.Tracer("auth").Start(ctx, "Register")
	defer span.End()

	var existingID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, req.Email).Scan(&existingID)
	if err == nil {
		return nil, apperr.New(apperr.KindAlreadyExists, "Email already registered")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, classify(err, "failed to check email")
	}

	err = s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE username = $1`, req.Username).Scan(&existingID)
	if err == nil {
		return nil, apperr.New(apperr.KindAlreadyExists, "Username already taken")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, classify(err, "failed to check username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, classify(err, "failed to hash password")
	}

	user := models.User{
		ID:       uuid.NewString(),
		Username: req.Username,
		Email:    req.Email,
		Role:     models.RoleUser,
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, role) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		user.ID, user.Username, user.Email, string(hash), user.Role,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, apperr.New(apperr.KindAlreadyExists, "Email or username already taken")
		}
		return nil, classify(err, "failed to create user")
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return &user, nil
}

// Login returns a signed token and the public user record. Unknown
// email and wrong password produce the same error so neither case
// leaks.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	ctx, span := otel.Tracer("auth").Start(ctx, "Login")
	defer span.End()

	var user models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, role, created_at FROM users WHERE email = $1`,
		req.Email,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindInvalidCredentials, "Invalid credentials")
	}
	if err != nil {
		return nil, classify(err, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.New(apperr.KindInvalidCredentials, "Invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, classify(err, "failed to sign token")
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID))
	return &models.LoginResponse{Token: signed, User: user}, nil
}
