package models

import "time"

// Fixture sources
const (
	FixtureSourceHookup = "hookup_csv"
	FixtureSourceManual = "manual"
)

// FixtureInfo is one lighting unit from the Lightwright hookup
type FixtureInfo struct {
	Model
	ProductionID       string     `gorm:"type:varchar(36);not null;index:idx_fixture_lwid,unique" json:"productionId"`
	LWID               string     `gorm:"column:lwid;size:64;not null;index:idx_fixture_lwid,unique" json:"lwid"`
	Channel            int        `gorm:"not null;index" json:"channel"`
	Position           string     `gorm:"size:128" json:"position"`
	UnitNumber         string     `gorm:"size:32" json:"unitNumber"`
	FixtureType        string     `gorm:"size:128" json:"fixtureType"`
	Purpose            string     `gorm:"size:255" json:"purpose"`
	Universe           int        `json:"universe"`
	Address            int        `json:"address"`
	UniverseAddressRaw string     `gorm:"size:32" json:"universeAddressRaw"`
	IsActive           bool       `gorm:"not null" json:"isActive"`
	Source             string     `gorm:"size:16;not null;default:hookup_csv" json:"source"`
	LastImportedAt     *time.Time `json:"lastImportedAt,omitempty"`
}

// TableName overrides the table name for FixtureInfo
func (FixtureInfo) TableName() string {
	return "fixtures"
}
