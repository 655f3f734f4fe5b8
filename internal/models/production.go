package models

import (
	"time"

	"gorm.io/gorm"
)

// Production is the root of every production-scoped store
type Production struct {
	Model
	Name         string         `gorm:"size:255;not null" json:"name"`
	Abbreviation string         `gorm:"size:32" json:"abbreviation"`
	Description  string         `gorm:"type:text" json:"description"`
	StartDate    *time.Time     `json:"startDate,omitempty"`
	EndDate      *time.Time     `json:"endDate,omitempty"`
	Version      uint64         `gorm:"not null;default:0" json:"version"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`
}

// TableName overrides the table name for Production
func (Production) TableName() string {
	return "productions"
}
