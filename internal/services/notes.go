package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/types"
	"gorm.io/gorm"
)

// Sort fields accepted by ListNotes
const (
	SortCueNumber  = "cue_number"
	SortPriority   = "priority"
	SortStatus     = "status"
	SortType       = "type"
	SortTitle      = "title"
	SortCreatedAt  = "created_at"
	SortUpdatedAt  = "updated_at"
	SortScriptPage = "script_page"
)

// NoteInput carries writable note fields. Nil pointers are left unchanged on update;
// an empty link id clears the link.
type NoteInput struct {
	ModuleType   *models.ModuleType `json:"moduleType" validate:"omitempty,oneof=cue work production"`
	Title        *string            `json:"title" validate:"omitempty,max=255"`
	Description  *string            `json:"description"`
	Priority     *models.Priority   `json:"priority" validate:"omitempty,oneof=critical very_high high medium low very_low"`
	Status       *models.NoteStatus `json:"status" validate:"omitempty,oneof=todo complete cancelled"`
	Type         *string            `json:"type" validate:"omitempty,max=64"`
	CueNumber    *string            `json:"cueNumber" validate:"omitempty,max=32"`
	CreatedBy    *string            `json:"createdBy"`
	AssignedTo   *string            `json:"assignedTo"`
	DueDate      *time.Time         `json:"dueDate"`
	ScriptPageID *string            `json:"scriptPageId"`
	SceneSongID  *string            `json:"sceneSongId"`
	FixtureID    *string            `json:"fixtureId"`
}

// NoteFilter narrows and orders a note listing
type NoteFilter struct {
	ModuleType   models.ModuleType   `json:"moduleType"`
	Statuses     []models.NoteStatus `json:"statuses"`
	Priorities   []models.Priority   `json:"priorities"`
	Types        []string            `json:"types"`
	Search       string              `json:"search"`
	ScriptPageID string              `json:"scriptPageId"`
	SceneSongID  string              `json:"sceneSongId"`
	FixtureID    string              `json:"fixtureId"`
	SortField    string              `json:"sortField"`
	SortOrder    string              `json:"sortOrder"`
	GroupByType  bool                `json:"groupByType"`
}

// Validate checks enum values and fills the default sort
func (f *NoteFilter) Validate() error {
	if f.ModuleType != "" && !f.ModuleType.Valid() {
		return types.Validationf("invalid module type '%s'", f.ModuleType)
	}
	for _, s := range f.Statuses {
		if !s.Valid() {
			return types.Validationf("invalid status '%s'", s)
		}
	}
	for _, p := range f.Priorities {
		if !p.Valid() {
			return types.Validationf("invalid priority '%s'", p)
		}
	}
	if f.SortField == "" {
		f.SortField = defaultSortField(f.ModuleType)
	}
	if _, ok := noteComparators[f.SortField]; !ok && f.SortField != SortScriptPage {
		return types.Validationf("invalid sort field '%s'", f.SortField)
	}
	switch strings.ToLower(f.SortOrder) {
	case "":
		f.SortOrder = "asc"
	case "asc", "desc":
		f.SortOrder = strings.ToLower(f.SortOrder)
	default:
		return types.Validationf("invalid sort order '%s'", f.SortOrder)
	}
	return nil
}

func defaultSortField(module models.ModuleType) string {
	if module == models.ModuleCue {
		return SortCueNumber
	}
	return SortPriority
}

type noteComparator func(a, b *models.Note) int

var noteComparators = map[string]noteComparator{
	SortCueNumber: func(a, b *models.Note) int { return CompareCueNumbers(a.CueNumber, b.CueNumber) },
	SortPriority:  func(a, b *models.Note) int { return a.Priority.Rank() - b.Priority.Rank() },
	SortStatus:    func(a, b *models.Note) int { return strings.Compare(string(a.Status), string(b.Status)) },
	SortType: func(a, b *models.Note) int {
		return strings.Compare(strings.ToLower(a.Type), strings.ToLower(b.Type))
	},
	SortTitle: func(a, b *models.Note) int {
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	},
	SortCreatedAt: func(a, b *models.Note) int { return a.CreatedAt.Compare(b.CreatedAt) },
	SortUpdatedAt: func(a, b *models.Note) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
}

// CreateNote adds a note to a production
func CreateNote(db *gorm.DB, productionID string, input NoteInput) (*models.Note, error) {
	note := &models.Note{
		ProductionID: productionID,
		Priority:     models.PriorityMedium,
		Status:       models.StatusTodo,
	}
	applyNoteInput(note, input)
	if note.ModuleType == "" {
		return nil, types.Validationf("note module type is required")
	}
	if note.Status == models.StatusComplete {
		now := time.Now()
		note.CompletedAt = &now
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := validateNote(tx, note); err != nil {
			return err
		}
		if err := tx.Create(note).Error; err != nil {
			return err
		}
		return touchProduction(tx, productionID)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// GetNote loads a note of a production
func GetNote(db *gorm.DB, productionID, noteID string) (*models.Note, error) {
	var note models.Note
	err := db.Where("id = ? AND production_id = ?", noteID, productionID).First(&note).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("note", noteID)
		}
		return nil, err
	}
	return &note, nil
}

// UpdateNote applies a partial update to a note
func UpdateNote(db *gorm.DB, productionID, noteID string, input NoteInput) (*models.Note, error) {
	var note *models.Note
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if note, err = GetNote(tx, productionID, noteID); err != nil {
			return err
		}
		previous := note.Status
		applyNoteInput(note, input)
		if note.Status != previous {
			setCompletedAt(note)
		}
		if err := validateNote(tx, note); err != nil {
			return err
		}
		if err := tx.Save(note).Error; err != nil {
			return err
		}
		return touchProduction(tx, productionID)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// SetNoteStatus changes only the status, maintaining the completed time
func SetNoteStatus(db *gorm.DB, productionID, noteID string, status models.NoteStatus) (*models.Note, error) {
	if !status.Valid() {
		return nil, types.Validationf("invalid status '%s'", status)
	}
	return UpdateNote(db, productionID, noteID, NoteInput{Status: &status})
}

// DeleteNote removes a note
func DeleteNote(db *gorm.DB, productionID, noteID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND production_id = ?", noteID, productionID).Delete(&models.Note{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return notFound("note", noteID)
		}
		return touchProduction(tx, productionID)
	})
}

// ListNotes returns the notes of a production matching filter, in filter order
func ListNotes(db *gorm.DB, productionID string, filter NoteFilter) ([]models.Note, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if _, err := GetProduction(db, productionID); err != nil {
		return nil, err
	}

	query := db.Where("production_id = ?", productionID)
	if filter.ModuleType != "" {
		query = query.Where("module_type = ?", filter.ModuleType)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if len(filter.Priorities) > 0 {
		query = query.Where("priority IN ?", filter.Priorities)
	}
	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if filter.ScriptPageID != "" {
		query = query.Where("script_page_id = ?", filter.ScriptPageID)
	}
	if filter.SceneSongID != "" {
		query = query.Where("scene_song_id = ?", filter.SceneSongID)
	}
	if filter.FixtureID != "" {
		query = query.Where("fixture_id = ?", filter.FixtureID)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + escapeLike(search) + "%"
		query = query.Where(
			"(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!' OR LOWER(cue_number) LIKE ? ESCAPE '!')",
			like, like, like)
	}

	var notes []models.Note
	if err := query.Find(&notes).Error; err != nil {
		return nil, err
	}

	compare, err := noteComparatorFor(db, productionID, filter.SortField)
	if err != nil {
		return nil, err
	}
	SortNotes(notes, compare, filter.SortOrder == "desc", filter.GroupByType)
	return notes, nil
}

// SortNotes orders notes in place. Ties fall back to creation time, then id.
func SortNotes(notes []models.Note, compare noteComparator, desc, groupByType bool) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := &notes[i], &notes[j]
		if groupByType {
			if c := noteComparators[SortType](a, b); c != 0 {
				return c < 0
			}
		}
		c := compare(a, b)
		if desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		if c = a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

func noteComparatorFor(db *gorm.DB, productionID, field string) (noteComparator, error) {
	if field != SortScriptPage {
		return noteComparators[field], nil
	}
	var pages []models.ScriptPage
	if err := db.Where("production_id = ?", productionID).Find(&pages).Error; err != nil {
		return nil, err
	}
	pageNumbers := make(map[string]string, len(pages))
	for _, p := range pages {
		pageNumbers[p.ID] = p.PageNumber
	}
	lookup := func(n *models.Note) (string, bool) {
		if n.ScriptPageID == nil {
			return "", false
		}
		page, ok := pageNumbers[*n.ScriptPageID]
		return page, ok
	}
	return func(a, b *models.Note) int {
		pa, okA := lookup(a)
		pb, okB := lookup(b)
		switch {
		case okA && okB:
			return ComparePageNumbers(pa, pb)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	}, nil
}

func applyNoteInput(note *models.Note, input NoteInput) {
	if input.ModuleType != nil {
		note.ModuleType = *input.ModuleType
	}
	if input.Title != nil {
		note.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		note.Description = *input.Description
	}
	if input.Priority != nil {
		note.Priority = *input.Priority
	}
	if input.Status != nil {
		note.Status = *input.Status
	}
	if input.Type != nil {
		note.Type = strings.TrimSpace(*input.Type)
	}
	if input.CueNumber != nil {
		note.CueNumber = strings.TrimSpace(*input.CueNumber)
	}
	if input.CreatedBy != nil {
		note.CreatedBy = *input.CreatedBy
	}
	if input.AssignedTo != nil {
		note.AssignedTo = *input.AssignedTo
	}
	if input.DueDate != nil {
		note.DueDate = input.DueDate
	}
	if input.ScriptPageID != nil {
		note.ScriptPageID = optionalID(*input.ScriptPageID)
	}
	if input.SceneSongID != nil {
		note.SceneSongID = optionalID(*input.SceneSongID)
	}
	if input.FixtureID != nil {
		note.FixtureID = optionalID(*input.FixtureID)
	}
}

func setCompletedAt(note *models.Note) {
	if note.Status == models.StatusComplete {
		now := time.Now()
		note.CompletedAt = &now
	} else {
		note.CompletedAt = nil
	}
}

func validateNote(tx *gorm.DB, note *models.Note) error {
	if !note.ModuleType.Valid() {
		return types.Validationf("invalid module type '%s'", note.ModuleType)
	}
	if note.Title == "" {
		return types.Validationf("note title is required")
	}
	if note.Type == "" {
		return types.Validationf("note type is required")
	}
	if !note.Priority.Valid() {
		return types.Validationf("invalid priority '%s'", note.Priority)
	}
	if !note.Status.Valid() {
		return types.Validationf("invalid status '%s'", note.Status)
	}

	links := []struct {
		id    *string
		model interface{}
		name  string
	}{
		{note.ScriptPageID, &models.ScriptPage{}, "script page"},
		{note.SceneSongID, &models.SceneSong{}, "scene/song"},
		{note.FixtureID, &models.FixtureInfo{}, "fixture"},
	}
	for _, link := range links {
		if link.id == nil {
			continue
		}
		ok, err := belongsToProduction(tx, link.model, *link.id, note.ProductionID)
		if err != nil {
			return err
		}
		if !ok {
			return types.Validationf("%s '%s' is not part of this production", link.name, *link.id)
		}
	}
	return nil
}

// belongsToProduction reports whether the row with id is scoped to productionID
func belongsToProduction(tx *gorm.DB, model interface{}, id, productionID string) (bool, error) {
	var count int64
	err := tx.Model(model).Where("id = ? AND production_id = ?", id, productionID).Count(&count).Error
	return count > 0, err
}

func optionalID(id string) *string {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return &id
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
