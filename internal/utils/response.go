package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medicare-server/internal/apperror"
	"medicare-server/internal/pagination"
)

// ResponseData represents the structure of a standard API response.
type ResponseData struct {
	Success    bool             `json:"success"`
	StatusCode int              `json:"statusCode"`
	Message    string           `json:"message"`
	Meta       *pagination.Meta `json:"meta,omitempty"`
	Data       interface{}      `json:"data"`
}

// ErrorResponse is the failure envelope rendered by the error middleware.
type ErrorResponse struct {
	Success     bool              `json:"success"`
	StatusCode  int               `json:"statusCode"`
	Message     string            `json:"message"`
	Error       interface{}       `json:"error,omitempty"`
	ErrorSource []apperror.Source `json:"errorSource"`
	Stack       string            `json:"stack,omitempty"`
}

// Success sends a standard success response.
func Success(c *gin.Context, message string, data interface{}) {
	Respond(c, http.StatusOK, message, data)
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, data interface{}) {
	Respond(c, http.StatusCreated, message, data)
}

// Respond sends a success envelope with an explicit status.
func Respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, ResponseData{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

// Paginated sends a success envelope carrying page metadata.
func Paginated[T any](c *gin.Context, message string, page *pagination.Result[T]) {
	meta := page.Meta
	data := page.Data
	if data == nil {
		data = []T{}
	}
	c.JSON(http.StatusOK, ResponseData{
		Success:    true,
		StatusCode: http.StatusOK,
		Message:    message,
		Meta:       &meta,
		Data:       data,
	})
}

// Abort records err for the error middleware and stops the handler chain.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
