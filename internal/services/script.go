package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/types"
	"gorm.io/gorm"
)

// ScriptPageInput carries writable script page fields
type ScriptPageInput struct {
	PageNumber     *string `json:"pageNumber" validate:"omitempty,max=32"`
	FirstCueNumber *string `json:"firstCueNumber" validate:"omitempty,max=32"`
}

// SceneSongInput carries writable scene/song fields. An empty ContinuesFromID clears the link.
type SceneSongInput struct {
	ScriptPageID    *string               `json:"scriptPageId"`
	Name            *string               `json:"name" validate:"omitempty,max=255"`
	Type            *models.SceneSongType `json:"type" validate:"omitempty,oneof=scene song"`
	FirstCueNumber  *string               `json:"firstCueNumber" validate:"omitempty,max=32"`
	OrderIndex      *int                  `json:"orderIndex" validate:"omitempty,min=0"`
	ContinuesFromID *string               `json:"continuesFromId"`
}

// CueOrderWarning is a soft warning about cue numbers running backwards
type CueOrderWarning struct {
	Kind         string `json:"kind"`
	Message      string `json:"message"`
	ScriptPageID string `json:"scriptPageId"`
	SceneSongID  string `json:"sceneSongId,omitempty"`
}

// Cue order warning kinds
const (
	WarnPageCueOrder         = "page_cue_order"
	WarnSceneCueOrder        = "scene_cue_order"
	WarnContinuationPosition = "continuation_before_source"
)

// ListScriptPages returns the pages of a production in natural page order
func ListScriptPages(db *gorm.DB, productionID string) ([]models.ScriptPage, error) {
	if _, err := GetProduction(db, productionID); err != nil {
		return nil, err
	}
	var pages []models.ScriptPage
	if err := db.Where("production_id = ?", productionID).Find(&pages).Error; err != nil {
		return nil, err
	}
	sortPages(pages)
	return pages, nil
}

// GetScriptPage loads a page of a production
func GetScriptPage(db *gorm.DB, productionID, pageID string) (*models.ScriptPage, error) {
	var page models.ScriptPage
	err := db.Where("id = ? AND production_id = ?", pageID, productionID).First(&page).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("script page", pageID)
		}
		return nil, err
	}
	return &page, nil
}

// CreateScriptPage adds a page; page numbers are unique within a production
func CreateScriptPage(db *gorm.DB, productionID string, input ScriptPageInput) (*models.ScriptPage, error) {
	page := &models.ScriptPage{ProductionID: productionID}
	applyPageInput(page, input)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := validatePage(tx, page); err != nil {
			return err
		}
		if err := tx.Create(page).Error; err != nil {
			return err
		}
		return touchProduction(tx, productionID)
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// UpdateScriptPage changes the page number or first cue
func UpdateScriptPage(db *gorm.DB, productionID, pageID string, input ScriptPageInput) (*models.ScriptPage, error) {
	var page *models.ScriptPage
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if page, err = GetScriptPage(tx, productionID, pageID); err != nil {
			return err
		}
		applyPageInput(page, input)
		if err := validatePage(tx, page); err != nil {
			return err
		}
		if err := tx.Save(page).Error; err != nil {
			return err
		}
		return touchProduction(tx, productionID)
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// DeleteScriptPage removes a page with its scenes/songs. Notes linked to the page or its
// scenes are unlinked and continuations of its scenes lose their link.
func DeleteScriptPage(db *gorm.DB, productionID, pageID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		page, err := GetScriptPage(tx, productionID, pageID)
		if err != nil {
			return err
		}

		var sceneIDs []string
		if err := tx.Model(&models.SceneSong{}).Where("script_page_id = ?", page.ID).Pluck("id", &sceneIDs).Error; err != nil {
			return err
		}

		notes := tx.Model(&models.Note{}).Where("production_id = ?", productionID)
		if err := notes.Where("script_page_id = ?", page.ID).Update("script_page_id", nil).Error; err != nil {
			return err
		}
		if len(sceneIDs) > 0 {
			if err := tx.Model(&models.Note{}).Where("scene_song_id IN ?", sceneIDs).Update("scene_song_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.SceneSong{}).Where("continues_from_id IN ?", sceneIDs).Update("continues_from_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", sceneIDs).Delete(&models.SceneSong{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(page).Error; err != nil {
			return err
		}
		return touchProduction(tx, productionID)
	})
}

// ListScenesSongs returns the scenes/songs of a page in order
func ListScenesSongs(db *gorm.DB, productionID, pageID string) ([]models.SceneSong, error) {
	if _, err := GetScriptPage(db, productionID, pageID); err != nil {
		return nil, err
	}
	var scenes []models.SceneSong
	err := db.Where("script_page_id = ?", pageID).Order("order_index, created_at").Find(&scenes).Error
	return scenes, err
}

// GetSceneSong loads a scene/song of a production
func GetSceneSong(db *gorm.DB, productionID, sceneID string) (*models.SceneSong, error) {
	var scene models.SceneSong
	err := db.Where("id = ? AND production_id = ?", sceneID, productionID).First(&scene).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("scene/song", sceneID)
		}
		return nil, err
	}
	return &scene, nil
}

// CreateSceneSong adds a scene/song to a page, at the end unless an order index is given
func CreateSceneSong(db *gorm.DB, productionID, pageID string, input SceneSongInput) (*models.SceneSong, error) {
	scene := &models.SceneSong{ProductionID: productionID, ScriptPageID: pageID}
	continuesFrom := input.ContinuesFromID
	input.ContinuesFromID = nil
	input.ScriptPageID = nil
	applySceneInput(scene, input)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := GetScriptPage(tx, productionID, pageID); err != nil {
			return err
		}
		if input.OrderIndex == nil {
			next, err := nextOrderIndex(tx, pageID)
			if err != nil {
				return err
			}
			scene.OrderIndex = next
		}
		if err := validateScene(scene); err != nil {
			return err
		}
		if err := tx.Create(scene).Error; err != nil {
			return err
		}
		if continuesFrom != nil {
			if err := SetContinuesFrom(tx, scene, *continuesFrom); err != nil {
				return err
			}
		}
		return touchProduction(tx, productionID)
	})
	if err != nil {
		return nil, err
	}
	return scene, nil
}

// UpdateSceneSong applies a partial update, validating any continuation change
func UpdateSceneSong(db *gorm.DB, productionID, sceneID string, input SceneSongInput) (*models.SceneSong, error) {
	var scene *models.SceneSong
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if scene, err = GetSceneSong(tx, productionID, sceneID); err != nil {
			return err
		}
		if input.ScriptPageID != nil && *input.ScriptPageID != scene.ScriptPageID {
			if _, err := GetScriptPage(tx, productionID, *input.ScriptPageID); err != nil {
				return err
			}
		}
		continuesFrom := input.ContinuesFromID
		input.ContinuesFromID = nil
		previousType := scene.Type
		applySceneInput(scene, input)
		if err := validateScene(scene); err != nil {
			return err
		}
		if scene.Type != previousType {
			if err := checkTypeChange(tx, scene, continuesFrom); err != nil {
				return err
			}
		}
		if err := tx.Save(scene).Error; err != nil {
			return err
		}
		if continuesFrom != nil {
			if err := SetContinuesFrom(tx, scene, *continuesFrom); err != nil {
				return err
			}
		}
		return touchProduction(tx, productionID)
	})
	if err != nil {
		return nil, err
	}
	return scene, nil
}

// checkTypeChange rejects a type change that would leave a chain with mixed types.
// A new predecessor in continuesFrom is checked later by SetContinuesFrom.
func checkTypeChange(tx *gorm.DB, scene *models.SceneSong, continuesFrom *string) error {
	if scene.ContinuesFromID != nil && (continuesFrom == nil || strings.TrimSpace(*continuesFrom) == *scene.ContinuesFromID) {
		return types.Validationf("clear continuesFromId before changing the type of '%s'", scene.Name)
	}
	var successors int64
	if err := tx.Model(&models.SceneSong{}).Where("continues_from_id = ?", scene.ID).Count(&successors).Error; err != nil {
		return err
	}
	if successors > 0 {
		return types.Validationf("'%s' has a continuation and cannot change type", scene.Name)
	}
	return nil
}

// SetContinuesFrom links scene to the scene it continues from. An empty sourceID clears the link.
// The source must be another scene of the same production and type, must not already have a
// continuation, and must not itself continue from scene.
func SetContinuesFrom(tx *gorm.DB, scene *models.SceneSong, sourceID string) error {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		scene.ContinuesFromID = nil
		return tx.Model(scene).Update("continues_from_id", nil).Error
	}
	if scene.ContinuesFromID != nil && *scene.ContinuesFromID == sourceID {
		return nil
	}
	if sourceID == scene.ID {
		return types.Validationf("a scene/song cannot continue from itself")
	}

	scenes, err := productionScenes(tx, scene.ProductionID)
	if err != nil {
		return err
	}
	source, ok := scenes[sourceID]
	if !ok {
		return types.Validationf("scene/song '%s' is not part of this production", sourceID)
	}
	if source.Type != scene.Type {
		return types.Validationf("a %s cannot continue from a %s", scene.Type, source.Type)
	}
	for _, other := range scenes {
		if other.ID != scene.ID && other.ContinuesFromID != nil && *other.ContinuesFromID == sourceID {
			return types.Validationf("'%s' already has a continuation", source.Name)
		}
	}
	for cur, steps := source, 0; cur != nil && steps <= len(scenes); steps++ {
		if cur.ID == scene.ID {
			return types.Validationf("continuing from '%s' would create a cycle", source.Name)
		}
		if cur.ContinuesFromID == nil {
			break
		}
		cur = scenes[*cur.ContinuesFromID]
	}

	scene.ContinuesFromID = &sourceID
	return tx.Model(scene).Update("continues_from_id", sourceID).Error
}

// ContinueSceneSong creates a continuation of a scene/song at the top of a later page
func ContinueSceneSong(db *gorm.DB, productionID, sceneID, targetPageID string) (*models.SceneSong, error) {
	var continuation *models.SceneSong
	err := db.Transaction(func(tx *gorm.DB) error {
		source, err := GetSceneSong(tx, productionID, sceneID)
		if err != nil {
			return err
		}
		sourcePage, err := GetScriptPage(tx, productionID, source.ScriptPageID)
		if err != nil {
			return err
		}
		target, err := GetScriptPage(tx, productionID, targetPageID)
		if err != nil {
			return err
		}
		if ComparePageNumbers(target.PageNumber, sourcePage.PageNumber) <= 0 {
			return types.Validationf("page %s does not follow page %s", target.PageNumber, sourcePage.PageNumber)
		}

		if err := tx.Model(&models.SceneSong{}).Where("script_page_id = ?", target.ID).
			Update("order_index", gorm.Expr("order_index + 1")).Error; err != nil {
			return err
		}
		continuation = &models.SceneSong{
			ProductionID: productionID,
			ScriptPageID: target.ID,
			Name:         source.Name,
			Type:         source.Type,
			OrderIndex:   0,
		}
		if err := tx.Create(continuation).Error; err != nil {
			return err
		}
		if err := SetContinuesFrom(tx, continuation, source.ID); err != nil {
			return err
		}
		return touchProduction(tx, productionID)
	})
	if err != nil {
		return nil, err
	}
	return continuation, nil
}

// ResolveChain returns the continuation chain containing sceneID, head first
func ResolveChain(db *gorm.DB, productionID, sceneID string) ([]models.SceneSong, error) {
	scenes, err := productionScenes(db, productionID)
	if err != nil {
		return nil, err
	}
	start, ok := scenes[sceneID]
	if !ok {
		return nil, notFound("scene/song", sceneID)
	}

	head := start
	for steps := 0; head.ContinuesFromID != nil && steps < len(scenes); steps++ {
		prev, ok := scenes[*head.ContinuesFromID]
		if !ok {
			break
		}
		head = prev
	}

	successors := make(map[string]*models.SceneSong, len(scenes))
	for _, s := range scenes {
		if s.ContinuesFromID != nil {
			successors[*s.ContinuesFromID] = s
		}
	}

	chain := []models.SceneSong{*head}
	seen := map[string]bool{head.ID: true}
	for cur := successors[head.ID]; cur != nil && !seen[cur.ID]; cur = successors[cur.ID] {
		seen[cur.ID] = true
		chain = append(chain, *cur)
	}
	return chain, nil
}

// DeleteSceneSong removes a scene/song, splicing it out of its continuation chain
func DeleteSceneSong(db *gorm.DB, productionID, sceneID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		scene, err := GetSceneSong(tx, productionID, sceneID)
		if err != nil {
			return err
		}
		var predecessor interface{}
		if scene.ContinuesFromID != nil {
			predecessor = *scene.ContinuesFromID
		}
		if err := tx.Model(&models.SceneSong{}).Where("continues_from_id = ?", scene.ID).
			Update("continues_from_id", predecessor).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Note{}).Where("scene_song_id = ?", scene.ID).
			Update("scene_song_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(scene).Error; err != nil {
			return err
		}
		return touchProduction(tx, productionID)
	})
}

// CueOrderWarnings reports pages and scenes whose first cue runs backwards, and
// continuations placed before their source page
func CueOrderWarnings(db *gorm.DB, productionID string) ([]CueOrderWarning, error) {
	pages, err := ListScriptPages(db, productionID)
	if err != nil {
		return nil, err
	}
	var scenes []models.SceneSong
	if err := db.Where("production_id = ?", productionID).Order("order_index, created_at").Find(&scenes).Error; err != nil {
		return nil, err
	}

	pageIndex := make(map[string]int, len(pages))
	pageNumber := make(map[string]string, len(pages))
	for i, p := range pages {
		pageIndex[p.ID] = i
		pageNumber[p.ID] = p.PageNumber
	}

	warnings := make([]CueOrderWarning, 0)
	// Highest first cue seen so far
	var lastCue string
	for _, p := range pages {
		if p.FirstCueNumber == nil || *p.FirstCueNumber == "" {
			continue
		}
		if lastCue != "" && CompareCueNumbers(*p.FirstCueNumber, lastCue) < 0 {
			warnings = append(warnings, CueOrderWarning{
				Kind:         WarnPageCueOrder,
				Message:      fmt.Sprintf("page %s starts at cue %s, before cue %s on an earlier page", p.PageNumber, *p.FirstCueNumber, lastCue),
				ScriptPageID: p.ID,
			})
		}
		if lastCue == "" || CompareCueNumbers(*p.FirstCueNumber, lastCue) > 0 {
			lastCue = *p.FirstCueNumber
		}
	}

	byPage := make(map[string][]models.SceneSong)
	byID := make(map[string]models.SceneSong, len(scenes))
	for _, s := range scenes {
		byPage[s.ScriptPageID] = append(byPage[s.ScriptPageID], s)
		byID[s.ID] = s
	}
	for _, p := range pages {
		var prevCue string
		for _, s := range byPage[p.ID] {
			if s.FirstCueNumber == nil || *s.FirstCueNumber == "" {
				continue
			}
			if prevCue != "" && CompareCueNumbers(*s.FirstCueNumber, prevCue) < 0 {
				warnings = append(warnings, CueOrderWarning{
					Kind:         WarnSceneCueOrder,
					Message:      fmt.Sprintf("%s '%s' on page %s starts at cue %s, before cue %s", s.Type, s.Name, p.PageNumber, *s.FirstCueNumber, prevCue),
					ScriptPageID: p.ID,
					SceneSongID:  s.ID,
				})
			}
			if prevCue == "" || CompareCueNumbers(*s.FirstCueNumber, prevCue) > 0 {
				prevCue = *s.FirstCueNumber
			}
		}

		for _, s := range byPage[p.ID] {
			if s.ContinuesFromID == nil {
				continue
			}
			source, ok := byID[*s.ContinuesFromID]
			if !ok {
				continue
			}
			if pageIndex[source.ScriptPageID] > pageIndex[p.ID] {
				warnings = append(warnings, CueOrderWarning{
					Kind:         WarnContinuationPosition,
					Message:      fmt.Sprintf("'%s' on page %s continues from page %s, which comes later", s.Name, p.PageNumber, pageNumber[source.ScriptPageID]),
					ScriptPageID: p.ID,
					SceneSongID:  s.ID,
				})
			}
		}
	}
	return warnings, nil
}

func productionScenes(tx *gorm.DB, productionID string) (map[string]*models.SceneSong, error) {
	var scenes []models.SceneSong
	if err := tx.Where("production_id = ?", productionID).Find(&scenes).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*models.SceneSong, len(scenes))
	for i := range scenes {
		byID[scenes[i].ID] = &scenes[i]
	}
	return byID, nil
}

func nextOrderIndex(tx *gorm.DB, pageID string) (int, error) {
	var count int64
	if err := tx.Model(&models.SceneSong{}).Where("script_page_id = ?", pageID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func sortPages(pages []models.ScriptPage) {
	sort.SliceStable(pages, func(i, j int) bool {
		return ComparePageNumbers(pages[i].PageNumber, pages[j].PageNumber) < 0
	})
}

func applyPageInput(page *models.ScriptPage, input ScriptPageInput) {
	if input.PageNumber != nil {
		page.PageNumber = strings.TrimSpace(*input.PageNumber)
	}
	if input.FirstCueNumber != nil {
		page.FirstCueNumber = optionalID(*input.FirstCueNumber)
	}
}

func validatePage(tx *gorm.DB, page *models.ScriptPage) error {
	if page.PageNumber == "" {
		return types.Validationf("page number is required")
	}
	var count int64
	query := tx.Model(&models.ScriptPage{}).Where("production_id = ? AND page_number = ?", page.ProductionID, page.PageNumber)
	if page.ID != "" {
		query = query.Where("id <> ?", page.ID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return types.Validationf("page %s already exists", page.PageNumber)
	}
	return nil
}

func applySceneInput(scene *models.SceneSong, input SceneSongInput) {
	if input.ScriptPageID != nil {
		scene.ScriptPageID = *input.ScriptPageID
	}
	if input.Name != nil {
		scene.Name = strings.TrimSpace(*input.Name)
	}
	if input.Type != nil {
		scene.Type = *input.Type
	}
	if input.FirstCueNumber != nil {
		scene.FirstCueNumber = optionalID(*input.FirstCueNumber)
	}
	if input.OrderIndex != nil {
		scene.OrderIndex = *input.OrderIndex
	}
}

func validateScene(scene *models.SceneSong) error {
	if scene.Name == "" {
		return types.Validationf("scene/song name is required")
	}
	if !scene.Type.Valid() {
		return types.Validationf("invalid scene/song type '%s'", scene.Type)
	}
	return nil
}
