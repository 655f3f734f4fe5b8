package models

// PresetType names the four kinds of reusable configuration
type PresetType string

const (
	PresetPageStyle    PresetType = "page_style"
	PresetFilterSort   PresetType = "filter_sort"
	PresetEmailMessage PresetType = "email_message"
	PresetPrint        PresetType = "print"
)

// Valid reports whether t is a known preset type
func (t PresetType) Valid() bool {
	switch t {
	case PresetPageStyle, PresetFilterSort, PresetEmailMessage, PresetPrint:
		return true
	}
	return false
}

// Preset is a named configuration blob. System presets have an empty ProductionID.
type Preset struct {
	Model
	ProductionID string     `gorm:"type:varchar(36);index:idx_preset_name,unique" json:"productionId"`
	Type         PresetType `gorm:"size:16;not null;index:idx_preset_name,unique" json:"type"`
	Name         string     `gorm:"size:255;not null;index:idx_preset_name,unique" json:"name"`
	IsDefault    bool       `gorm:"not null" json:"isDefault"`
	Config       JSON       `json:"config"`
}

// TableName overrides the table name for Preset
func (Preset) TableName() string {
	return "presets"
}

// IsSystem reports whether the preset is a read-only system default
func (p *Preset) IsSystem() bool {
	return p.ProductionID == ""
}
