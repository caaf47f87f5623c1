package handlers

import (
	"net/http"
	"os"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Munirmohammed/Ecommerce/config"
	"github.com/Munirmohammed/Ecommerce/middleware"
	"github.com/Munirmohammed/Ecommerce/models"
	"github.com/Munirmohammed/Ecommerce/response"
)

// NewRouter assembles the gin engine: middleware chain, public and
// protected route groups, and the operational endpoints.
func NewRouter(cfg config.Config, logger *zap.Logger, auth *AuthHandler, products *ProductHandler, orders *OrderHandler) *gin.Engine {
	if os.Getenv("GIN_MODE") == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(middleware.MetricsMiddleware())
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/health", HealthCheck)
	r.GET("/metrics", middleware.PrometheusHandler())
	r.Static("/uploads", cfg.UploadDir)

	authGate := middleware.Auth(cfg.JWTSecret)
	apiLimiter := middleware.NewRateLimiter(100, 15*time.Minute)
	authLimiter := middleware.NewRateLimiter(10, 15*time.Minute)
	orderLimiter := middleware.NewRateLimiter(10, time.Hour)

	api := r.Group("/api")
	api.Use(apiLimiter.Middleware())
	{
		authGroup := api.Group("/auth")
		authGroup.Use(authLimiter.Middleware())
		{
			authGroup.POST("/register", auth.Register)
			authGroup.POST("/login", auth.Login)
		}

		productGroup := api.Group("/products")
		{
			productGroup.GET("", products.List)
			productGroup.GET("/:id", products.Get)

			admin := productGroup.Group("")
			admin.Use(authGate, middleware.RequireRole(models.RoleAdmin))
			{
				admin.POST("", products.Create)
				admin.PUT("/:id", products.Update)
				admin.DELETE("/:id", products.Delete)
			}
		}

		orderGroup := api.Group("/orders")
		orderGroup.Use(authGate)
		{
			orderGroup.POST("", orderLimiter.Middleware(), orders.Create)
			orderGroup.GET("", orders.List)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, "Route not found", "The requested endpoint does not exist")
	})

	return r
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("strongpassword", strongPassword)
}

// strongPassword requires at least 8 characters with uppercase,
// lowercase, digit and special character.
func strongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && digit && special
}
