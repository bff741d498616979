package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/review"
	"github.com/Jaikumar96/fincategorizer/internal/storage"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Fields map[string]string `json:"fields,omitempty"`
	Error  string            `json:"error"`
}

// requestValidator adapts go-playground/validator to echo.Validator.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, storage.ErrInvalidCategory),
		errors.Is(err, storage.ErrInvalidDateRange):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrDuplicateEntry), errors.Is(err, common.ErrCategoryInUse):
		return http.StatusConflict
	case errors.Is(err, review.ErrLockNotObtained):
		return http.StatusConflict
	case errors.Is(err, common.ErrClassificationUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := statusFor(err)
	body := ErrorResponse{Error: err.Error()}

	var httpErr *echo.HTTPError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &httpErr):
		status = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			body.Error = msg
		} else {
			body.Error = http.StatusText(status)
		}
	case errors.As(err, &verrs):
		body.Error = "invalid request"
		body.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			body.Fields[fe.Field()] = fe.Tag()
		}
	case status == http.StatusInternalServerError:
		s.logger.Error("Request failed", "path", c.Path(), "error", err)
		body.Error = "internal server error"
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.logger.Warn("Failed to write error response", "error", err)
	}
}
