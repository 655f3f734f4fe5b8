package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/k3a/html2text"
	"github.com/localnerve/lxnotes/internal/logger"
	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/notify"
	"github.com/localnerve/lxnotes/internal/printing"
	"github.com/localnerve/lxnotes/internal/storage"
	"github.com/localnerve/lxnotes/internal/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EmailRequest selects a stored email preset or carries an inline message
type EmailRequest struct {
	PresetID   string              `json:"presetId"`
	Message    *EmailMessageConfig `json:"message"`
	SenderName string              `json:"senderName"`
}

// EmailResult reports what was sent
type EmailResult struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	NoteCount  int      `json:"noteCount"`
	PDFLink    string   `json:"pdfLink,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// EmailService renders and delivers notes emails
type EmailService struct {
	DB         *gorm.DB
	Engine     *printing.TemplateEngine
	Renderer   printing.PDFRenderer
	Sender     notify.Sender
	Store      storage.Store
	FromName   string
	LinkExpiry time.Duration
}

// SendNotesEmail builds the report selected by the email message, substitutes
// placeholders and delivers it to the recipients
func (s *EmailService) SendNotesEmail(ctx context.Context, productionID string, req EmailRequest) (*EmailResult, error) {
	msg, err := s.resolveMessage(productionID, req)
	if err != nil {
		return nil, err
	}

	report, err := BuildReport(s.DB, productionID, ReportRequest{
		FilterSortPresetID: msg.FilterAndSortPresetID,
		PageStylePresetID:  msg.PageStylePresetID,
	})
	if err != nil {
		return nil, err
	}

	sender := req.SenderName
	if sender == "" {
		sender = s.FromName
	}
	values := PlaceholderValues(report, sender, time.Now())
	subject := ApplyPlaceholders(msg.Subject, values)
	bodyHTML := messageHTML(ApplyPlaceholders(msg.Message, values))

	result := &EmailResult{
		Recipients: msg.Recipients,
		Subject:    subject,
		NoteCount:  report.Counts.Total,
	}

	if msg.IncludeNotesInBody {
		table, err := s.Engine.RenderNotesTable(report)
		if err != nil {
			return nil, err
		}
		bodyHTML += table
	}

	if msg.AttachPdf {
		link, warning, err := s.publishPDF(ctx, productionID, report)
		if err != nil {
			return nil, err
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		if link != "" {
			result.PDFLink = link
			bodyHTML += fmt.Sprintf(`<p>PDF: <a href="%s">%s</a></p>`, html.EscapeString(link), html.EscapeString(link))
		}
	}

	body := html2text.HTML2Text(bodyHTML)
	if err := s.Sender.Send(ctx, notify.Message{To: msg.Recipients, Subject: subject, Body: body}); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("notes email sent",
		zap.String("production_id", productionID),
		zap.Int("recipients", len(msg.Recipients)),
		zap.Int("notes", report.Counts.Total))
	return result, nil
}

func (s *EmailService) resolveMessage(productionID string, req EmailRequest) (*EmailMessageConfig, error) {
	var msg EmailMessageConfig
	switch {
	case req.PresetID != "":
		if _, err := LoadPresetConfig(s.DB, productionID, req.PresetID, models.PresetEmailMessage, &msg); err != nil {
			return nil, err
		}
	case req.Message != nil:
		msg = *req.Message
	default:
		return nil, types.Validationf("an email preset or message is required")
	}
	for i, r := range msg.Recipients {
		msg.Recipients[i] = strings.TrimSpace(r)
	}
	if err := ValidateStruct(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// publishPDF renders the report and uploads it, returning a download link. Without
// object storage the attachment is skipped with a warning.
func (s *EmailService) publishPDF(ctx context.Context, productionID string, report *printing.Report) (string, string, error) {
	if s.Store == nil || !s.Store.Enabled() {
		return "", "PDF attachment skipped: object storage is not configured", nil
	}
	if s.Renderer == nil {
		return "", "PDF attachment skipped: PDF rendering is not available", nil
	}

	doc, err := s.Engine.RenderReport(report)
	if err != nil {
		return "", "", err
	}
	pdf, err := s.Renderer.Render(ctx, RenderRequestFor(report, doc))
	if err != nil {
		return "", "", err
	}

	key := storage.ReportKey(productionID, report.GeneratedAt)
	if err := s.Store.Put(ctx, key, pdf.PDFData, "application/pdf"); err != nil {
		return "", "", err
	}
	link, err := s.Store.PresignGet(ctx, key, s.LinkExpiry)
	if err != nil {
		return "", "", err
	}
	return link, "", nil
}

// messageHTML treats a message without markup as plain text paragraphs
func messageHTML(message string) string {
	if strings.ContainsAny(message, "<>") {
		return message
	}
	var b strings.Builder
	for _, para := range strings.Split(strings.ReplaceAll(message, "\r\n", "\n"), "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
