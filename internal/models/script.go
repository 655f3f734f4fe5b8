package models

// ScriptPage is a page of the script, numbered with free text such as "23a"
type ScriptPage struct {
	Model
	ProductionID   string  `gorm:"type:varchar(36);not null;index" json:"productionId"`
	PageNumber     string  `gorm:"size:32;not null" json:"pageNumber"`
	FirstCueNumber *string `gorm:"size:32" json:"firstCueNumber,omitempty"`
}

// TableName overrides the table name for ScriptPage
func (ScriptPage) TableName() string {
	return "script_pages"
}

// SceneSongType distinguishes scenes from songs
type SceneSongType string

const (
	SceneType SceneSongType = "scene"
	SongType  SceneSongType = "song"
)

// Valid reports whether t is a known scene/song type
func (t SceneSongType) Valid() bool {
	return t == SceneType || t == SongType
}

// SceneSong is a scene or song starting on a script page. ContinuesFromID links a
// continuation to the same scene or song on an earlier page.
type SceneSong struct {
	Model
	ProductionID    string        `gorm:"type:varchar(36);not null;index" json:"productionId"`
	ScriptPageID    string        `gorm:"type:varchar(36);not null;index" json:"scriptPageId"`
	Name            string        `gorm:"size:255;not null" json:"name"`
	Type            SceneSongType `gorm:"size:8;not null" json:"type"`
	FirstCueNumber  *string       `gorm:"size:32" json:"firstCueNumber,omitempty"`
	OrderIndex      int           `gorm:"not null;default:0" json:"orderIndex"`
	ContinuesFromID *string       `gorm:"type:varchar(36);index" json:"continuesFromId,omitempty"`
}

// TableName overrides the table name for SceneSong
func (SceneSong) TableName() string {
	return "scenes_songs"
}
