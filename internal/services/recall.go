package services

import (
	"context"
	"errors"

	"github.com/localnerve/lxnotes/internal/console"
	"github.com/localnerve/lxnotes/internal/types"
	"gorm.io/gorm"
)

// RecallResult reports the cue that was fired
type RecallResult struct {
	NoteID    string `json:"noteId"`
	CueNumber string `json:"cueNumber"`
}

// RecallCue fires the cue of a note on the configured console
func RecallCue(ctx context.Context, db *gorm.DB, recaller console.Recaller, productionID, noteID string) (*RecallResult, error) {
	if recaller == nil {
		return nil, types.Validationf("console recall is not configured")
	}
	note, err := GetNote(db.WithContext(ctx), productionID, noteID)
	if err != nil {
		return nil, err
	}
	if note.CueNumber == "" {
		return nil, types.Validationf("note '%s' has no cue number", note.Title)
	}
	if err := recaller.FireCue(ctx, note.CueNumber); err != nil {
		if errors.Is(err, console.ErrInvalidCue) {
			return nil, types.Validationf("%v", err)
		}
		return nil, err
	}
	return &RecallResult{NoteID: note.ID, CueNumber: note.CueNumber}, nil
}
