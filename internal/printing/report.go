package printing

import (
	"time"

	"github.com/localnerve/lxnotes/internal/models"
)

// Report is the data bound to the notes report template
type Report struct {
	Title             string
	Production        models.Production
	ModuleType        models.ModuleType
	GeneratedAt       time.Time
	Notes             []ReportNote
	Counts            StatusCounts
	FilterDescription string
	SortDescription   string
	GroupByType       bool
	PageStyle         PageStyle
}

// ReportNote is a note with its links resolved to display labels
type ReportNote struct {
	models.Note
	ScriptPage string
	SceneSong  string
	Fixture    string
}

// References lists the resolved page, scene and fixture labels
func (n ReportNote) References() []string {
	var refs []string
	for _, ref := range []string{n.ScriptPage, n.SceneSong, n.Fixture} {
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// StatusCounts counts report notes by status
type StatusCounts struct {
	Total     int `json:"total"`
	Todo      int `json:"todo"`
	Complete  int `json:"complete"`
	Cancelled int `json:"cancelled"`
}

// CountStatuses tallies notes by status
func CountStatuses(notes []ReportNote) StatusCounts {
	counts := StatusCounts{Total: len(notes)}
	for _, n := range notes {
		switch n.Status {
		case models.StatusTodo:
			counts.Todo++
		case models.StatusComplete:
			counts.Complete++
		case models.StatusCancelled:
			counts.Cancelled++
		}
	}
	return counts
}

// ReportGroup is a run of notes sharing a type
type ReportGroup struct {
	Type  string
	Notes []ReportNote
}

// Groups splits the notes into consecutive runs by type, or one group when not grouping
func (r *Report) Groups() []ReportGroup {
	if !r.GroupByType {
		return []ReportGroup{{Notes: r.Notes}}
	}
	var groups []ReportGroup
	for _, n := range r.Notes {
		if len(groups) == 0 || groups[len(groups)-1].Type != n.Type {
			groups = append(groups, ReportGroup{Type: n.Type})
		}
		last := &groups[len(groups)-1]
		last.Notes = append(last.Notes, n)
	}
	return groups
}

// ShowCueColumn reports whether any note carries a cue number
func (r *Report) ShowCueColumn() bool {
	if r.ModuleType == models.ModuleCue {
		return true
	}
	for _, n := range r.Notes {
		if n.CueNumber != "" {
			return true
		}
	}
	return false
}
