package response

import (
	"errors"
	"net/http"

	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON body written for every failed request.
type ErrorBody struct {
	Message string `json:"message"`
}

// Envelope wraps successful payloads of the profile and booking APIs.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// PageMeta describes a paginated payload.
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// PagedEnvelope wraps a page of items.
type PagedEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Meta    PageMeta    `json:"meta"`
}

// Success writes a 200 envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 envelope.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes a 200 envelope carrying paging metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, PagedEnvelope{
		Success: true,
		Data:    items,
		Meta:    PageMeta{Total: total, Page: page, Limit: limit, TotalPages: totalPages},
	})
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Message: message})
}

// Unauthorized writes a 401 with the given message.
func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody{Message: message})
}

// Error maps err to a status code and writes its message.
// Errors that are not AppErrors are reported as 500 with a generic message.
func Error(c *gin.Context, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Message: "internal server error"})
		return
	}
	message := appErr.Message
	if appErr.Kind == domain.KindUpstream && appErr.Err != nil {
		message = appErr.Error()
	}
	c.AbortWithStatusJSON(StatusFor(appErr.Kind), ErrorBody{Message: message})
}

// StatusFor returns the HTTP status code for an error kind.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindPrecondition:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalidState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
