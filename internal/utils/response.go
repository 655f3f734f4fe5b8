package utils

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

const versionConflictMessage = "E_VERSION - Refresh and reconcile with current version and retry."

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status       int    `json:"status"`
	Message      string `json:"message"`
	Ok           bool   `json:"ok"`
	Timestamp    string `json:"timestamp"`
	URL          string `json:"url"`
	Type         string `json:"type,omitempty"`
	VersionError bool   `json:"versionError,omitempty"`
}

// SuccessResponseStruct defines the schema for mutation success responses.
// NewVersion is the production version after the mutation, as a string.
type SuccessResponseStruct struct {
	Message      string `json:"message"`
	Ok           bool   `json:"ok"`
	NewVersion   string `json:"newVersion"`
	Timestamp    string `json:"timestamp"`
	AffectedRows int64  `json:"affectedRows"`
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func errorBody(c *fiber.Ctx, status int, message, errorType string) ErrorResponseStruct {
	return ErrorResponseStruct{
		Status:    status,
		Message:   message,
		Timestamp: now(),
		URL:       c.OriginalURL(),
		Type:      errorType,
	}
}

// ErrorResponse sends the standard error envelope
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(errorBody(c, status, message, errorType))
}

// VersionErrorResponse sends the 409 a client gets when its production version is stale
func VersionErrorResponse(c *fiber.Ctx) error {
	body := errorBody(c, fiber.StatusConflict, versionConflictMessage, "version")
	body.VersionError = true
	return c.Status(fiber.StatusConflict).JSON(body)
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, message, fiber.StatusNotFound, "data.notfound")
}

// MutationSuccessResponse reports the production version a mutation moved to
func MutationSuccessResponse(c *fiber.Ctx, newVersion uint64, affectedRows int64) error {
	return c.Status(fiber.StatusOK).JSON(SuccessResponseStruct{
		Message:      "Success",
		Ok:           true,
		NewVersion:   fmt.Sprintf("%d", newVersion),
		Timestamp:    now(),
		AffectedRows: affectedRows,
	})
}
