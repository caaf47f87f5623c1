package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Munirmohammed/Ecommerce/models"
	"github.com/Munirmohammed/Ecommerce/response"
	"github.com/Munirmohammed/Ecommerce/services"
	"github.com/Munirmohammed/Ecommerce/storage"
)

type ProductHandler struct {
	svc    *services.ProductService
	images *storage.ImageStore
	logger *zap.Logger
}

func NewProductHandler(svc *services.ProductService, images *storage.ImageStore, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{svc: svc, images: images, logger: logger}
}

func (h *ProductHandler) List(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		response.Fail(c, http.StatusBadRequest, "Invalid page parameter")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		response.Fail(c, http.StatusBadRequest, "Invalid limit parameter")
		return
	}
	search := c.Query("search")

	result, err := h.svc.List(c.Request.Context(), page, limit, search)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		response.Error(c, err)
		return
	}

	response.Paginated(c, "Products retrieved successfully", result.Products, result.Page, result.Limit, result.Total)
}

func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Product retrieved successfully", product)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req models.CreateProductRequest
	if err := bindJSONOrForm(c, &req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Validation failed", bindingErrors(err)...)
		return
	}

	if url, ok := h.saveImageIfPresent(c); ok {
		req.ImageURL = url
	} else if c.IsAborted() {
		return
	}

	product, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Failed to create product", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "Product created successfully", product)
}

func (h *ProductHandler) Update(c *gin.Context) {
	var req models.UpdateProductRequest
	if err := bindJSONOrForm(c, &req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Validation failed", bindingErrors(err)...)
		return
	}

	if url, ok := h.saveImageIfPresent(c); ok {
		req.ImageURL = &url
	} else if c.IsAborted() {
		return
	}

	product, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Product updated successfully", product)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Product deleted successfully", nil)
}

// bindJSONOrForm accepts either a JSON body or multipart form fields,
// so image uploads and plain API calls share one endpoint.
func bindJSONOrForm(c *gin.Context, obj any) error {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return c.ShouldBind(obj)
	}
	return c.ShouldBindJSON(obj)
}

// saveImageIfPresent stores an uploaded image file when one was sent.
// It aborts the request with a 400 on storage/validation failure.
func (h *ProductHandler) saveImageIfPresent(c *gin.Context) (string, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return "", false
	}
	file, err := c.FormFile("image")
	if err != nil {
		return "", false
	}
	url, err := h.images.Save(c, file)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Image upload failed", err.Error())
		return "", false
	}
	return url, true
}
