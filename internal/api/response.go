package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	jerrors "discipline-journal/internal/errors"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListDataResponse wraps a listing.
type ListDataResponse struct {
	Rows  interface{} `json:"rows"`
	Total int         `json:"total"`
}

// AppError is the rendered form of a failed operation.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

// ValidationError is one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// DataResponse writes data under the given status.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// SuccessResponse writes a 200 response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// CreatedResponse writes a 201 response.
func CreatedResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusCreated, data)
}

// ListResponse writes a listing.
func ListResponse(c echo.Context, rows interface{}, total int) error {
	return SuccessResponse(c, &ListDataResponse{Rows: rows, Total: total})
}

// BadRequestResponse writes request validation failures.
func BadRequestResponse(c echo.Context, errs []ValidationError) error {
	return DataResponse(c, http.StatusBadRequest, errs)
}

// UnauthorizedResponse writes an authentication failure.
func UnauthorizedResponse(c echo.Context, message string) error {
	return DataResponse(c, http.StatusUnauthorized, []*AppError{{Code: "UNAUTHORIZED", Message: message}})
}

// ErrorResponse maps a journal error to its HTTP status. Anything outside the
// journal taxonomy is reported as a generic 500.
func ErrorResponse(c echo.Context, err error) error {
	appErr := ToAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}
	return DataResponse(c, appErr.Status, []*AppError{appErr})
}

// ToAppError converts err for rendering.
func ToAppError(err error) *AppError {
	var je *jerrors.JournalError
	if !errors.As(err, &je) {
		return &AppError{
			Code:    jerrors.CodeInternal,
			Message: "Something went wrong",
			Status:  http.StatusInternalServerError,
		}
	}
	return &AppError{
		Code:    je.Code(),
		Message: je.Message,
		Field:   je.Field,
		Status:  StatusFor(je.Code()),
	}
}

// StatusFor returns the HTTP status for a journal error code.
func StatusFor(code string) int {
	switch code {
	case jerrors.CodeNotFound:
		return http.StatusNotFound
	case jerrors.CodeMissingField, jerrors.CodeValidationRange:
		return http.StatusBadRequest
	case jerrors.CodeInvalidTransition, jerrors.CodeReadOnly, jerrors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
