package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model is the common primary key and timestamp set for every LX Notes table
type Model struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not supply one
func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// All returns every model for migrations, in dependency order
func All() []interface{} {
	return []interface{}{
		&Production{},
		&ScriptPage{},
		&SceneSong{},
		&FixtureInfo{},
		&Note{},
		&Preset{},
		&Checkpoint{},
	}
}
