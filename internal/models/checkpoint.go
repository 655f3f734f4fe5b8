package models

// Checkpoint is a stored production snapshot that can be restored later
type Checkpoint struct {
	Model
	ProductionID      string `gorm:"type:varchar(36);not null;index" json:"productionId"`
	Label             string `gorm:"size:255" json:"label"`
	ProductionVersion uint64 `gorm:"not null" json:"productionVersion"`
	Payload           JSON   `json:"-"`
	SizeBytes         int64  `json:"sizeBytes"`
	ObjectKey         string `gorm:"size:512" json:"objectKey,omitempty"`
	CreatedBy         string `gorm:"size:255" json:"createdBy,omitempty"`
}

// TableName overrides the table name for Checkpoint
func (Checkpoint) TableName() string {
	return "checkpoints"
}
