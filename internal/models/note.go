package models

import "time"

// ModuleType partitions notes into the three LX Notes modules
type ModuleType string

const (
	ModuleCue        ModuleType = "cue"
	ModuleWork       ModuleType = "work"
	ModuleProduction ModuleType = "production"
)

// Valid reports whether m is a known module
func (m ModuleType) Valid() bool {
	switch m {
	case ModuleCue, ModuleWork, ModuleProduction:
		return true
	}
	return false
}

// NoteStatus is the lifecycle state of a note
type NoteStatus string

const (
	StatusTodo      NoteStatus = "todo"
	StatusComplete  NoteStatus = "complete"
	StatusCancelled NoteStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s NoteStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusComplete, StatusCancelled:
		return true
	}
	return false
}

// Priority orders notes by urgency
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityVeryHigh Priority = "very_high"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
	PriorityVeryLow  Priority = "very_low"
)

var priorityRank = map[Priority]int{
	PriorityCritical: 1,
	PriorityVeryHigh: 2,
	PriorityHigh:     3,
	PriorityMedium:   4,
	PriorityLow:      5,
	PriorityVeryLow:  6,
}

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Rank returns 1 for the most urgent priority; unknown priorities sort last
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank) + 1
}

// Note is a cue, work or production note
type Note struct {
	Model
	ProductionID string     `gorm:"type:varchar(36);not null;index" json:"productionId"`
	ModuleType   ModuleType `gorm:"size:16;not null;index" json:"moduleType"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	Priority     Priority   `gorm:"size:16;not null;default:medium" json:"priority"`
	Status       NoteStatus `gorm:"size:16;not null;default:todo;index" json:"status"`
	Type         string     `gorm:"size:64;not null" json:"type"`
	CueNumber    string     `gorm:"size:32" json:"cueNumber,omitempty"`
	CreatedBy    string     `gorm:"size:255" json:"createdBy,omitempty"`
	AssignedTo   string     `gorm:"size:255" json:"assignedTo,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	ScriptPageID *string    `gorm:"type:varchar(36);index" json:"scriptPageId,omitempty"`
	SceneSongID  *string    `gorm:"type:varchar(36);index" json:"sceneSongId,omitempty"`
	FixtureID    *string    `gorm:"type:varchar(36);index" json:"fixtureId,omitempty"`
}

// TableName overrides the table name for Note
func (Note) TableName() string {
	return "notes"
}
