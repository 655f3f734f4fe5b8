package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/lxnotes/internal/middleware"
	"github.com/localnerve/lxnotes/internal/printing"
	"github.com/localnerve/lxnotes/internal/services"
	"github.com/localnerve/lxnotes/internal/types"
	"gorm.io/gorm"
)

// ReportHandler handles print and email routes
type ReportHandler struct {
	DB         *gorm.DB
	Engine     *printing.TemplateEngine
	Renderer   printing.PDFRenderer
	Email      *services.EmailService
	PDFTimeout time.Duration
}

func (h *ReportHandler) buildReport(c *fiber.Ctx) (*printing.Report, error) {
	var body services.ReportRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &body); err != nil {
			return nil, err
		}
	}
	return services.BuildReport(h.DB, c.Params("productionId"), body)
}

// RenderReportPDF handles POST /api/productions/:productionId/print
// @Summary Print notes to PDF
// @Description Builds the report from a print preset, a filter_sort preset or an inline filter and renders it with headless Chrome
// @Tags Reports
// @Accept json
// @Produce application/pdf
// @Param productionId path string true "Production ID"
// @Param body body services.ReportRequest false "Report selection"
// @Success 200 {file} file
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 504 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/print [post]
func (h *ReportHandler) RenderReportPDF(c *fiber.Ctx) error {
	if h.Renderer == nil {
		return respondError(c, &types.CustomError{
			Code:    fiber.StatusServiceUnavailable,
			Message: "PDF rendering is not available",
			Type:    "render.disabled",
		}, "renderReportPDF")
	}
	report, err := h.buildReport(c)
	if err != nil {
		return respondError(c, err, "renderReportPDF")
	}
	html, err := h.Engine.RenderReport(report)
	if err != nil {
		return respondError(c, err, "renderReportPDF")
	}

	req := services.RenderRequestFor(report, html)
	req.Timeout = h.PDFTimeout
	result, err := h.Renderer.Render(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "renderReportPDF")
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, reportFilename(report)))
	return c.Send(result.PDFData)
}

// RenderReportHTML handles POST /api/productions/:productionId/print/preview
// @Summary Preview the printed notes as HTML
// @Tags Reports
// @Accept json
// @Produce text/html
// @Param productionId path string true "Production ID"
// @Param body body services.ReportRequest false "Report selection"
// @Success 200 {string} string
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/print/preview [post]
func (h *ReportHandler) RenderReportHTML(c *fiber.Ctx) error {
	report, err := h.buildReport(c)
	if err != nil {
		return respondError(c, err, "renderReportHTML")
	}
	html, err := h.Engine.RenderReport(report)
	if err != nil {
		return respondError(c, err, "renderReportHTML")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(html)
}

// SendNotesEmail handles POST /api/productions/:productionId/email
// @Summary Email notes
// @Description Sends an email preset or an inline message with placeholders substituted
// @Tags Reports
// @Accept json
// @Produce json
// @Param productionId path string true "Production ID"
// @Param body body services.EmailRequest true "Preset or inline message"
// @Success 200 {object} services.EmailResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 503 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/email [post]
func (h *ReportHandler) SendNotesEmail(c *fiber.Ctx) error {
	var body services.EmailRequest
	if err := parseBody(c, &body); err != nil {
		return respondError(c, err, "sendNotesEmail")
	}
	if body.SenderName == "" {
		body.SenderName = middleware.CurrentUser(c, "")
	}
	result, err := h.Email.SendNotesEmail(c.UserContext(), c.Params("productionId"), body)
	if err != nil {
		return respondError(c, err, "sendNotesEmail")
	}
	return c.JSON(result)
}

// reportFilename builds a download name like "HMLT-cue-notes-20261018.pdf"
func reportFilename(report *printing.Report) string {
	name := report.Production.Abbreviation
	if name == "" {
		name = report.Production.Name
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, name)
	if name == "" {
		name = "production"
	}
	module := string(report.ModuleType)
	if module == "" {
		module = "all"
	}
	return fmt.Sprintf("%s-%s-notes-%s.pdf", name, module, report.GeneratedAt.Format("20060102"))
}
