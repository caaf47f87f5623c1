package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Munirmohammed/Ecommerce/apperr"
	"github.com/Munirmohammed/Ecommerce/events"
	"github.com/Munirmohammed/Ecommerce/middleware"
	"github.com/Munirmohammed/Ecommerce/models"
	"github.com/Munirmohammed/Ecommerce/response"
	"github.com/Munirmohammed/Ecommerce/services"
)

type OrderHandler struct {
	svc      *services.OrderService
	producer *events.Producer
	logger   *zap.Logger
}

func NewOrderHandler(svc *services.OrderService, producer *events.Producer, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, producer: producer, logger: logger}
}

func (h *OrderHandler) Create(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	var lines []models.OrderLineRequest
	if err := c.ShouldBindJSON(&lines); err != nil {
		response.Fail(c, http.StatusBadRequest, "Validation failed", bindingErrors(err)...)
		return
	}

	order, err := h.svc.PlaceOrder(c.Request.Context(), claims.UserID, lines)
	if err != nil {
		middleware.RecordOrderPlaced(orderMetricStatus(err))
		h.logger.Warn("Order placement failed", zap.String("user_id", claims.UserID), zap.Error(err))
		response.Error(c, err)
		return
	}

	middleware.RecordOrderPlaced("success")
	h.producer.PublishOrderCreated(c.Request.Context(), order)
	response.Success(c, http.StatusCreated, "Order placed successfully", order)
}

func (h *OrderHandler) List(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	orders, err := h.svc.ListOrders(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.String("user_id", claims.UserID), zap.Error(err))
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Orders retrieved successfully", orders)
}

func orderMetricStatus(err error) string {
	k, ok := apperr.KindOf(err)
	if !ok {
		return "error"
	}
	switch k {
	case apperr.KindInsufficientStock:
		return "insufficient_stock"
	case apperr.KindNotFound:
		return "not_found"
	case apperr.KindInvalidRequest:
		return "invalid"
	default:
		return "error"
	}
}
