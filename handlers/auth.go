package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Munirmohammed/Ecommerce/models"
	"github.com/Munirmohammed/Ecommerce/response"
	"github.com/Munirmohammed/Ecommerce/services"
)

type AuthHandler struct {
	svc    *services.AuthService
	logger *zap.Logger
}

func NewAuthHandler(svc *services.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Validation failed", bindingErrors(err)...)
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		h.logger.Warn("Registration failed", zap.String("email", req.Email), zap.Error(err))
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "User registered successfully", user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Validation failed", bindingErrors(err)...)
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Login successful", result)
}

// bindingErrors flattens gin binding failures into client-facing
// messages, one per offending field.
func bindingErrors(err error) []string {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return []string{"Invalid request body"}
	}
	msgs := make([]string, 0, len(vErrs))
	for _, vErr := range vErrs {
		switch vErr.Tag() {
		case "required":
			msgs = append(msgs, vErr.Field()+" is required")
		case "email":
			msgs = append(msgs, "Invalid email format")
		case "min":
			msgs = append(msgs, vErr.Field()+" must be at least "+vErr.Param()+" characters")
		case "max":
			msgs = append(msgs, vErr.Field()+" must be at most "+vErr.Param()+" characters")
		case "alphanum":
			msgs = append(msgs, vErr.Field()+" must be alphanumeric only")
		case "strongpassword":
			msgs = append(msgs, "Password must be at least 8 characters with uppercase, lowercase, number and special character")
		case "gt", "gte":
			msgs = append(msgs, vErr.Field()+" is out of range")
		case "uuid":
			msgs = append(msgs, vErr.Field()+" must be a valid id")
		case "url":
			msgs = append(msgs, vErr.Field()+" must be a valid URL")
		default:
			msgs = append(msgs, vErr.Field()+" is invalid")
		}
	}
	return msgs
}
