package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/printing"
	"gorm.io/gorm"
)

// ReportRequest selects the notes and layout of a report. Preset ids take precedence
// over the inline filter and page style.
type ReportRequest struct {
	PrintPresetID      string           `json:"printPresetId"`
	FilterSortPresetID string           `json:"filterSortPresetId"`
	PageStylePresetID  string           `json:"pageStylePresetId"`
	Filter             *NoteFilter      `json:"filter"`
	PageStyle          *PageStyleConfig `json:"pageStyle"`
	Title              string           `json:"title"`
}

var sortLabels = map[string]string{
	SortCueNumber:  "cue number",
	SortPriority:   "priority",
	SortStatus:     "status",
	SortType:       "type",
	SortTitle:      "title",
	SortCreatedAt:  "date created",
	SortUpdatedAt:  "date modified",
	SortScriptPage: "script page",
}

// BuildReport gathers the filtered notes of a production with their links resolved
func BuildReport(db *gorm.DB, productionID string, req ReportRequest) (*printing.Report, error) {
	prod, err := GetProduction(db, productionID)
	if err != nil {
		return nil, err
	}

	if req.PrintPresetID != "" {
		var cfg PrintConfig
		if _, err := LoadPresetConfig(db, productionID, req.PrintPresetID, models.PresetPrint, &cfg); err != nil {
			return nil, err
		}
		req.FilterSortPresetID = cfg.FilterAndSortPresetID
		req.PageStylePresetID = cfg.PageStylePresetID
	}

	filter := NoteFilter{}
	if req.Filter != nil {
		filter = *req.Filter
	}
	if req.FilterSortPresetID != "" {
		var cfg FilterSortConfig
		if _, err := LoadPresetConfig(db, productionID, req.FilterSortPresetID, models.PresetFilterSort, &cfg); err != nil {
			return nil, err
		}
		filter = cfg.Filter()
	}

	style := printing.DefaultPageStyle()
	if req.PageStyle != nil {
		if err := ValidateStruct(req.PageStyle); err != nil {
			return nil, err
		}
		style = pageStyleFromConfig(*req.PageStyle)
	}
	if req.PageStylePresetID != "" {
		var cfg PageStyleConfig
		if _, err := LoadPresetConfig(db, productionID, req.PageStylePresetID, models.PresetPageStyle, &cfg); err != nil {
			return nil, err
		}
		style = pageStyleFromConfig(cfg)
	}

	notes, err := ListNotes(db, productionID, filter)
	if err != nil {
		return nil, err
	}
	reportNotes, err := resolveNoteLabels(db, productionID, notes)
	if err != nil {
		return nil, err
	}

	title := req.Title
	if title == "" {
		title = moduleTitle(filter.ModuleType)
	}

	return &printing.Report{
		Title:             title,
		Production:        *prod,
		ModuleType:        filter.ModuleType,
		GeneratedAt:       time.Now(),
		Notes:             reportNotes,
		Counts:            printing.CountStatuses(reportNotes),
		FilterDescription: DescribeFilter(filter),
		SortDescription:   DescribeSort(filter),
		GroupByType:       filter.GroupByType,
		PageStyle:         style,
	}, nil
}

// RenderRequestFor builds the PDF render request for a report
func RenderRequestFor(report *printing.Report, html string) *printing.RenderRequest {
	return &printing.RenderRequest{
		HTML:        html,
		Title:       fmt.Sprintf("%s - %s", report.Production.Name, report.Title),
		PaperSize:   report.PageStyle.PaperSize,
		Orientation: report.PageStyle.Orientation,
		Margins:     printing.DefaultMargins(),
		FooterHTML:  printing.PageNumberFooter,
	}
}

// DescribeFilter summarizes a filter for report headers and emails
func DescribeFilter(f NoteFilter) string {
	var parts []string
	if f.ModuleType != "" {
		parts = append(parts, moduleTitle(f.ModuleType))
	} else {
		parts = append(parts, "All notes")
	}
	if len(f.Statuses) > 0 {
		parts = append(parts, "status: "+joinLabels(f.Statuses))
	}
	if len(f.Priorities) > 0 {
		parts = append(parts, "priority: "+joinLabels(f.Priorities))
	}
	if len(f.Types) > 0 {
		parts = append(parts, "type: "+strings.Join(f.Types, ", "))
	}
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("matching %q", f.Search))
	}
	return strings.Join(parts, "; ")
}

// DescribeSort summarizes the sort order of a filter
func DescribeSort(f NoteFilter) string {
	field := f.SortField
	if field == "" {
		field = defaultSortField(f.ModuleType)
	}
	label, ok := sortLabels[field]
	if !ok {
		label = field
	}
	order := "ascending"
	if strings.EqualFold(f.SortOrder, "desc") {
		order = "descending"
	}
	desc := fmt.Sprintf("Sorted by %s, %s", label, order)
	if f.GroupByType {
		desc += ", grouped by type"
	}
	return desc
}

func joinLabels[T ~string](values []T) string {
	labels := make([]string, len(values))
	for i, v := range values {
		labels[i] = printing.Label(v)
	}
	return strings.Join(labels, ", ")
}

func moduleTitle(module models.ModuleType) string {
	switch module {
	case models.ModuleCue:
		return "Cue Notes"
	case models.ModuleWork:
		return "Work Notes"
	case models.ModuleProduction:
		return "Production Notes"
	}
	return "Notes"
}

func pageStyleFromConfig(cfg PageStyleConfig) printing.PageStyle {
	return printing.PageStyle{
		PaperSize:         printing.PaperSize(cfg.PaperSize),
		Orientation:       printing.Orientation(cfg.Orientation),
		IncludeCheckboxes: cfg.IncludeCheckboxes,
	}
}

// resolveNoteLabels attaches page, scene and fixture labels to notes
func resolveNoteLabels(db *gorm.DB, productionID string, notes []models.Note) ([]printing.ReportNote, error) {
	var pages []models.ScriptPage
	var scenes []models.SceneSong
	var fixtures []models.FixtureInfo
	if err := db.Where("production_id = ?", productionID).Find(&pages).Error; err != nil {
		return nil, err
	}
	if err := db.Where("production_id = ?", productionID).Find(&scenes).Error; err != nil {
		return nil, err
	}
	if err := db.Where("production_id = ?", productionID).Find(&fixtures).Error; err != nil {
		return nil, err
	}

	pageLabels := make(map[string]string, len(pages))
	for _, p := range pages {
		pageLabels[p.ID] = "Page " + p.PageNumber
	}
	sceneLabels := make(map[string]string, len(scenes))
	for _, s := range scenes {
		sceneLabels[s.ID] = printing.Label(s.Type) + ": " + s.Name
	}
	fixtureLabels := make(map[string]string, len(fixtures))
	for _, f := range fixtures {
		label := fmt.Sprintf("Ch %d", f.Channel)
		if f.Position != "" {
			label += fmt.Sprintf(" (%s #%s)", f.Position, f.UnitNumber)
		}
		fixtureLabels[f.ID] = label
	}

	out := make([]printing.ReportNote, len(notes))
	for i, n := range notes {
		out[i] = printing.ReportNote{Note: n}
		if n.ScriptPageID != nil {
			out[i].ScriptPage = pageLabels[*n.ScriptPageID]
		}
		if n.SceneSongID != nil {
			out[i].SceneSong = sceneLabels[*n.SceneSongID]
		}
		if n.FixtureID != nil {
			out[i].Fixture = fixtureLabels[*n.FixtureID]
		}
	}
	return out, nil
}
