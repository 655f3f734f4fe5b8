package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/lxnotes/internal/csvimport"
	"github.com/localnerve/lxnotes/internal/logger"
	"github.com/localnerve/lxnotes/internal/notify"
	"github.com/localnerve/lxnotes/internal/printing"
	"github.com/localnerve/lxnotes/internal/services"
	"github.com/localnerve/lxnotes/internal/types"
	"github.com/localnerve/lxnotes/internal/utils"
	"go.uber.org/zap"
)

// respondError maps service errors to the error envelope. op names the failing
// operation and becomes the type of unexpected errors.
func respondError(c *fiber.Ctx, err error, op string) error {
	var custom *types.CustomError
	var renderErr *printing.RenderError

	switch {
	case errors.Is(err, services.ErrVersion):
		return utils.VersionErrorResponse(c)
	case errors.Is(err, services.ErrNotFound):
		return utils.NotFoundResponse(c, err.Error())
	case errors.As(err, &custom):
		return utils.ErrorResponse(c, custom.Message, custom.Code, custom.Type)
	case errors.Is(err, csvimport.ErrFileTooLarge):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusRequestEntityTooLarge, types.ErrTypeImport)
	case errors.Is(err, csvimport.ErrEmptyFile),
		errors.Is(err, csvimport.ErrInvalidEncoding),
		errors.Is(err, csvimport.ErrMissingHeader):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, types.ErrTypeImport)
	case errors.Is(err, notify.ErrNotConfigured):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusServiceUnavailable, "email.disabled")
	case errors.As(err, &renderErr):
		status := fiber.StatusInternalServerError
		switch renderErr.Code {
		case printing.ErrCodeInvalidHTML, printing.ErrCodeInvalidPaperSize:
			status = fiber.StatusBadRequest
		case printing.ErrCodeRenderTimeout:
			status = fiber.StatusGatewayTimeout
		}
		logger.FromContext(c.UserContext()).Error("PDF render failed",
			zap.String("code", renderErr.Code), zap.Error(err))
		return utils.ErrorResponse(c, renderErr.Error(), status, "render."+renderErr.Code)
	}

	logger.FromContext(c.UserContext()).Error("Request failed", zap.String("op", op), zap.Error(err))
	return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, op)
}

// ErrorHandler is the application error handler for errors that escape a handler
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		if fiberErr.Code == fiber.StatusNotFound {
			return utils.NotFoundResponse(c, "[404] Resource Not Found")
		}
		return utils.ErrorResponse(c, fiberErr.Message, fiberErr.Code, "unknown")
	}
	return respondError(c, err, "unknown")
}
