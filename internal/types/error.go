package types

import (
	"fmt"
	"net/http"
)

// Error types reported in the response envelope
const (
	ErrTypeValidation = "data.validation.input"
	ErrTypeNotFound   = "data.notfound"
	ErrTypeReadOnly   = "data.readonly"
	ErrTypeImport     = "data.import"
)

type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// Validationf builds a 400 validation error
func Validationf(format string, args ...any) *CustomError {
	return &CustomError{
		Code:    http.StatusBadRequest,
		Message: fmt.Sprintf(format, args...),
		Type:    ErrTypeValidation,
	}
}
