package services

import (
	"regexp"
	"strconv"
	"time"

	"github.com/localnerve/lxnotes/internal/printing"
)

// Email placeholders
const (
	PlaceholderProductionTitle   = "PRODUCTION_TITLE"
	PlaceholderCurrentDate       = "CURRENT_DATE"
	PlaceholderCurrentTime       = "CURRENT_TIME"
	PlaceholderNoteCount         = "NOTE_COUNT"
	PlaceholderTodoCount         = "TODO_COUNT"
	PlaceholderCompleteCount     = "COMPLETE_COUNT"
	PlaceholderCancelledCount    = "CANCELLED_COUNT"
	PlaceholderFilterDescription = "FILTER_DESCRIPTION"
	PlaceholderSortDescription   = "SORT_DESCRIPTION"
	PlaceholderSenderName        = "SENDER_NAME"
)

var placeholderPattern = regexp.MustCompile(`\{\{([A-Z_]+)\}\}`)

// PlaceholderValues builds the substitution table for a report
func PlaceholderValues(report *printing.Report, senderName string, now time.Time) map[string]string {
	return map[string]string{
		PlaceholderProductionTitle:   report.Production.Name,
		PlaceholderCurrentDate:       now.Format("January 2, 2006"),
		PlaceholderCurrentTime:       now.Format("3:04 PM"),
		PlaceholderNoteCount:         strconv.Itoa(report.Counts.Total),
		PlaceholderTodoCount:         strconv.Itoa(report.Counts.Todo),
		PlaceholderCompleteCount:     strconv.Itoa(report.Counts.Complete),
		PlaceholderCancelledCount:    strconv.Itoa(report.Counts.Cancelled),
		PlaceholderFilterDescription: report.FilterDescription,
		PlaceholderSortDescription:   report.SortDescription,
		PlaceholderSenderName:        senderName,
	}
}

// ApplyPlaceholders replaces {{NAME}} tokens found in values. Unknown tokens are left as written.
func ApplyPlaceholders(text string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		name := token[2 : len(token)-2]
		if v, ok := values[name]; ok {
			return v
		}
		return token
	})
}
