// Package response defines the JSON envelope returned by every API endpoint.
package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error type labels carried in the "type" field of error responses.
const (
	TypeValidation = "VALIDATION"
	TypeConflict   = "CONFLICT"
	TypeNotFound   = "NOT_FOUND"
	TypeInternal   = "INTERNAL"
)

var EmptyRequestBodyResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusBadRequest,
	Type:       TypeValidation,
	Message:    "Request body is empty. Please provide necessary data.",
}

var InvalidRequestBodyResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusBadRequest,
	Type:       TypeValidation,
	Message:    "Request body is not valid JSON or has unexpected fields.",
}

var ServerErrorResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusInternalServerError,
	Type:       TypeInternal,
	Message:    "An internal server error occurred. Please try again later.",
}

type Response struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Type       string `json:"type,omitempty"`
	Message    string `json:"message"`
	Details    []any  `json:"details,omitempty"`
	Data       any    `json:"data,omitempty"`
}

// SuccessResponse builds a success envelope. Only the first data value is used.
func SuccessResponse(statusCode int, msg string, data ...any) Response {
	resp := Response{
		Status:     StatusSuccess,
		StatusCode: statusCode,
		Message:    msg,
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	return resp
}

func ErrorResponse(statusCode int, errType, msg string, details ...any) Response {
	return Response{
		Status:     StatusError,
		StatusCode: statusCode,
		Type:       errType,
		Message:    msg,
		Details:    details,
	}
}

// ValidationErrorResponse reports msg with one detail per failed field of cause.
// Validator errors without a field name, as produced by Var checks, are
// attributed to field. Without validator errors a non-empty field gets msg as its issue.
func ValidationErrorResponse(msg, field string, cause error) Response {
	details := getValidationErrors(cause, field)
	if len(details) == 0 && field != "" {
		details = append(details, validationError{Field: field, Issue: msg})
	}

	return ErrorResponse(http.StatusBadRequest, TypeValidation, msg, details...)
}

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value,omitempty"`
	Issue string `json:"issue"`
}

func getValidationErrors(err error, field string) []any {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	details := make([]any, 0, len(validationErrs))
	for _, e := range validationErrs {
		name := e.Field()
		if name == "" {
			name = field
		}

		details = append(details, validationError{
			Field: name,
			Value: e.Value(),
			Issue: issueForTag(e.Tag(), e.Param()),
		})
	}

	return details
}

func issueForTag(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "url", "http_url":
		return "Invalid url."
	case "max":
		return fmt.Sprintf("Must be at most %s characters long.", param)
	case "min":
		return fmt.Sprintf("Must be at least %s.", param)
	case "gt":
		return fmt.Sprintf("Must be greater than %s.", param)
	case "lte":
		return fmt.Sprintf("Must be at most %s.", param)
	case "shortalias":
		return "Only letters, digits, '_' and '-' are allowed."
	default:
		return "Invalid value."
	}
}
