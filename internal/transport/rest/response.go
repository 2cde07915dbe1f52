package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcenter/internal/domain"
	"medcenter/pkg/validator"
)

type errorResponseBody struct {
	Status  string                `json:"status"`
	Message string                `json:"message"`
	Code    int                   `json:"code,omitempty"`
	Fields  validator.FieldErrors `json:"fields,omitempty"`
}

type successResponseBody struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type messageResponseType struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type paginatedResponse struct {
	Data       interface{} `json:"data"`
	TotalCount int         `json:"total_count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

func successResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, successResponseBody{
		Status: "success",
		Data:   data,
	})
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, errorResponseBody{
		Status:  "error",
		Message: message,
		Code:    statusCode,
	})
}

func validationErrorResponse(c *gin.Context, fields validator.FieldErrors) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponseBody{
		Status:  "error",
		Message: domain.ErrValidation.Error(),
		Code:    http.StatusUnprocessableEntity,
		Fields:  fields,
	})
}

func messageResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, messageResponseType{
		Status:  "success",
		Message: message,
	})
}

func paginatedSuccessResponse(c *gin.Context, data interface{}, totalCount, page, pageSize int) {
	totalPages := totalCount / pageSize
	if totalCount%pageSize > 0 {
		totalPages++
	}

	c.JSON(http.StatusOK, paginatedResponse{
		Data:       data,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

func createdResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, successResponseBody{
		Status: "success",
		Data:   data,
	})
}

func noContentResponse(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func badRequestResponse(c *gin.Context, message string) {
	errorResponse(c, http.StatusBadRequest, message)
}

func unauthorizedResponse(c *gin.Context) {
	errorResponse(c, http.StatusUnauthorized, "требуется авторизация")
}

func forbiddenResponse(c *gin.Context, message ...string) {
	msg := "доступ запрещен"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	errorResponse(c, http.StatusForbidden, msg)
}

func notFoundResponse(c *gin.Context, message string) {
	errorResponse(c, http.StatusNotFound, message)
}

func internalServerErrorResponse(c *gin.Context) {
	errorResponse(c, http.StatusInternalServerError, "внутренняя ошибка сервера")
}

// Business refusals are answered with the sentinel text only, so wrapped
// details from lower layers never reach the client.
var serviceErrorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrRatingNotAllowed, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrVisitLimitExceeded, http.StatusConflict},
	{domain.ErrNotCancellable, http.StatusConflict},
	{domain.ErrAlreadyFinished, http.StatusConflict},
	{domain.ErrSlotTaken, http.StatusConflict},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrStorageUnavailable, http.StatusServiceUnavailable},
}

// serviceErrorResponse translates an error returned by the service layer.
// Unknown errors are logged with the operation name and answered with 500.
func (h *Handler) serviceErrorResponse(c *gin.Context, err error, operation string) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		validationErrorResponse(c, vErr.Fields)
		return
	}

	if errors.Is(err, domain.ErrMalformedInput) ||
		errors.Is(err, domain.ErrInvalidSchedule) ||
		errors.Is(err, domain.ErrInvalidSlot) {
		badRequestResponse(c, err.Error())
		return
	}

	for _, e := range serviceErrorStatuses {
		if errors.Is(err, e.err) {
			if e.status >= http.StatusInternalServerError {
				h.logger.Error(operation, zap.Error(err))
			}
			errorResponse(c, e.status, e.err.Error())
			return
		}
	}

	h.logger.Error(operation, zap.Error(err))
	internalServerErrorResponse(c)
}
