// Package printing renders notes reports to HTML and PDF.
package printing

import (
	"context"
	"time"
)

// PaperSize is a supported page size
type PaperSize string

const (
	PaperA4     PaperSize = "a4"
	PaperLetter PaperSize = "letter"
	PaperLegal  PaperSize = "legal"
)

// Valid reports whether p is a supported paper size
func (p PaperSize) Valid() bool {
	_, ok := paperDimensions[p]
	return ok
}

// Dimensions returns the portrait width and height in millimeters
func (p PaperSize) Dimensions() (float64, float64) {
	d := paperDimensions[p]
	return d[0], d[1]
}

var paperDimensions = map[PaperSize][2]float64{
	PaperA4:     {210, 297},
	PaperLetter: {215.9, 279.4},
	PaperLegal:  {215.9, 355.6},
}

// Orientation is portrait or landscape
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Margins in millimeters
type Margins struct {
	Top, Right, Bottom, Left float64
}

// DefaultMargins leaves room for the page number footer
func DefaultMargins() Margins {
	return Margins{Top: 12, Right: 10, Bottom: 15, Left: 10}
}

// PageStyle is the resolved layout of a printed report
type PageStyle struct {
	PaperSize         PaperSize   `json:"paperSize"`
	Orientation       Orientation `json:"orientation"`
	IncludeCheckboxes bool        `json:"includeCheckboxes"`
}

// DefaultPageStyle is used when no page style preset is selected
func DefaultPageStyle() PageStyle {
	return PageStyle{PaperSize: PaperLetter, Orientation: Portrait}
}

// RenderRequest contains the parameters for rendering HTML to PDF
type RenderRequest struct {
	HTML        string
	Title       string
	PaperSize   PaperSize
	Orientation Orientation
	Margins     Margins
	HeaderHTML  string
	FooterHTML  string
	Timeout     time.Duration
}

// RenderResult is a rendered PDF
type RenderResult struct {
	PDFData        []byte
	RenderDuration time.Duration
}

// PDFRenderer converts HTML to PDF
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// RenderError represents an error during rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout    = "RENDER_TIMEOUT"
	ErrCodeRenderFailed     = "RENDER_FAILED"
	ErrCodeInvalidHTML      = "INVALID_HTML"
	ErrCodeInvalidPaperSize = "INVALID_PAPER_SIZE"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

// PageNumberFooter is the footer template printed on every page
const PageNumberFooter = `<div style="font-size:8px;width:100%;text-align:center;color:#555;">` +
	`<span class="title"></span> &middot; Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
