package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mycourse/catalog-backend/internal/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Title   string `json:"title,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondDomainError maps an apperr code onto an HTTP status, attaching the
// conflicting title for uniqueness failures.
func RespondDomainError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case apperr.CodeInvalidArgument, apperr.CodeCurrencyMismatch:
		status = http.StatusBadRequest
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeTitleUnavailable, apperr.CodeConcurrencyConflict:
		status = http.StatusConflict
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: err.Error(),
			Code:    string(code),
			Title:   apperr.ConflictingTitle(err),
		},
	})
}

func HealthCheck(c *gin.Context) {
	RespondOK(c, gin.H{"status": "ok"})
}
