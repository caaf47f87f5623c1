// Package response implements the envelope shared by every endpoint.
package response

import (
	"github.com/gin-gonic/gin"

	"github.com/Munirmohammed/Ecommerce/apperr"
)

type Body struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

type PaginatedBody struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Data       any      `json:"data"`
	PageNumber int      `json:"pageNumber"`
	PageSize   int      `json:"pageSize"`
	TotalSize  int      `json:"totalSize"`
	Errors     []string `json:"errors"`
}

func Success(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Body{Success: true, Message: message, Data: data})
}

func Paginated(c *gin.Context, message string, data any, page, pageSize, total int) {
	c.JSON(200, PaginatedBody{
		Success:    true,
		Message:    message,
		Data:       data,
		PageNumber: page,
		PageSize:   pageSize,
		TotalSize:  total,
	})
}

func Fail(c *gin.Context, status int, message string, errs ...string) {
	if len(errs) == 0 {
		errs = []string{message}
	}
	c.AbortWithStatusJSON(status, Body{Success: false, Message: message, Errors: errs})
}

// Error renders err using the apperr status mapping. The client sees
// the public message only.
func Error(c *gin.Context, err error) {
	msg := apperr.PublicMessage(err)
	Fail(c, apperr.HTTPStatus(err), msg)
}
