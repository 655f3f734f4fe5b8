package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/types"
	"gorm.io/gorm"
)

// SnapshotFormatVersion is the current export format
const SnapshotFormatVersion = 1

// Import modes
const (
	ImportModeNew     = "new"
	ImportModeReplace = "replace"
)

// Snapshot is the portable export of a production
type Snapshot struct {
	FormatVersion int                  `json:"formatVersion"`
	ExportedAt    time.Time            `json:"exportedAt"`
	Production    models.Production    `json:"production"`
	Notes         []models.Note        `json:"notes"`
	ScriptPages   []models.ScriptPage  `json:"scriptPages"`
	ScenesSongs   []models.SceneSong   `json:"scenesSongs"`
	Fixtures      []models.FixtureInfo `json:"fixtures"`
	Presets       []models.Preset      `json:"presets"`
}

// SnapshotImport is the outcome of importing a snapshot
type SnapshotImport struct {
	Production *models.Production `json:"production"`
	Notes      int                `json:"notes"`
	Pages      int                `json:"scriptPages"`
	Scenes     int                `json:"scenesSongs"`
	Fixtures   int                `json:"fixtures"`
	Presets    int                `json:"presets"`
	Warnings   []string           `json:"warnings"`
}

// ExportProduction captures a production and all its scoped rows
func ExportProduction(db *gorm.DB, productionID string) (*Snapshot, error) {
	prod, err := GetProduction(db, productionID)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		FormatVersion: SnapshotFormatVersion,
		ExportedAt:    time.Now().UTC(),
		Production:    *prod,
	}
	scoped := []interface{}{&snap.Notes, &snap.ScriptPages, &snap.ScenesSongs, &snap.Fixtures, &snap.Presets}
	for _, dest := range scoped {
		if err := db.Where("production_id = ?", productionID).Order("created_at, id").Find(dest).Error; err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// DecodeSnapshot parses and checks a snapshot document
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, types.Validationf("invalid snapshot: %v", err)
	}
	if err := validateSnapshot(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ImportSnapshot loads a snapshot into a new production, or replaces the content of
// targetID. All rows get fresh ids; links pointing outside the snapshot are cleared.
func ImportSnapshot(db *gorm.DB, snap *Snapshot, mode, targetID string) (*SnapshotImport, error) {
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}

	var result *SnapshotImport
	err := db.Transaction(func(tx *gorm.DB) error {
		var prod *models.Production
		switch mode {
		case "", ImportModeNew:
			prod = &models.Production{
				Name:         snap.Production.Name,
				Abbreviation: snap.Production.Abbreviation,
				Description:  snap.Production.Description,
				StartDate:    snap.Production.StartDate,
				EndDate:      snap.Production.EndDate,
			}
			if err := tx.Create(prod).Error; err != nil {
				return err
			}
		case ImportModeReplace:
			var err error
			if prod, err = GetProduction(tx, targetID); err != nil {
				return err
			}
			if err := clearProductionContent(tx, prod.ID, true); err != nil {
				return err
			}
			if err := touchProduction(tx, prod.ID); err != nil {
				return err
			}
		default:
			return types.Validationf("invalid import mode '%s'", mode)
		}

		var err error
		if result, err = writeSnapshotContent(tx, prod.ID, snap); err != nil {
			return err
		}
		prod, err = GetProduction(tx, prod.ID)
		result.Production = prod
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateSnapshot(snap *Snapshot) error {
	if snap == nil {
		return types.Validationf("snapshot is required")
	}
	if snap.FormatVersion != SnapshotFormatVersion {
		return types.Validationf("unsupported snapshot format version %d", snap.FormatVersion)
	}
	if snap.Production.Name == "" {
		return types.Validationf("snapshot production name is required")
	}
	pages := make(map[string]bool, len(snap.ScriptPages))
	for _, p := range snap.ScriptPages {
		if pages[p.PageNumber] {
			return types.Validationf("snapshot has duplicate script page %s", p.PageNumber)
		}
		pages[p.PageNumber] = true
	}
	lwids := make(map[string]bool, len(snap.Fixtures))
	for _, f := range snap.Fixtures {
		if lwids[f.LWID] {
			return types.Validationf("snapshot has duplicate fixture lwid %s", f.LWID)
		}
		lwids[f.LWID] = true
	}
	return nil
}

// writeSnapshotContent inserts the snapshot rows under productionID with fresh ids
func writeSnapshotContent(tx *gorm.DB, productionID string, snap *Snapshot) (*SnapshotImport, error) {
	result := &SnapshotImport{Warnings: make([]string, 0)}
	warn := func(format string, args ...any) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(format, args...))
	}
	remap := func(ids map[string]string, id *string) (*string, bool) {
		if id == nil {
			return nil, true
		}
		if mapped, ok := ids[*id]; ok {
			return &mapped, true
		}
		return nil, false
	}
	freshIDs := func(n int, idOf func(int) string) map[string]string {
		ids := make(map[string]string, n)
		for i := 0; i < n; i++ {
			ids[idOf(i)] = uuid.NewString()
		}
		return ids
	}

	pageIDs := freshIDs(len(snap.ScriptPages), func(i int) string { return snap.ScriptPages[i].ID })
	sceneIDs := freshIDs(len(snap.ScenesSongs), func(i int) string { return snap.ScenesSongs[i].ID })
	fixtureIDs := freshIDs(len(snap.Fixtures), func(i int) string { return snap.Fixtures[i].ID })
	presetIDs := freshIDs(len(snap.Presets), func(i int) string { return snap.Presets[i].ID })

	pages := make([]models.ScriptPage, 0, len(snap.ScriptPages))
	for _, p := range snap.ScriptPages {
		p.ID, p.ProductionID = pageIDs[p.ID], productionID
		pages = append(pages, p)
	}

	scenes := make([]models.SceneSong, 0, len(snap.ScenesSongs))
	for _, s := range snap.ScenesSongs {
		pageID, ok := pageIDs[s.ScriptPageID]
		if !ok {
			warn("dropped %s '%s': script page %s is not in the snapshot", s.Type, s.Name, s.ScriptPageID)
			delete(sceneIDs, s.ID)
			continue
		}
		s.ID, s.ProductionID, s.ScriptPageID = sceneIDs[s.ID], productionID, pageID
		scenes = append(scenes, s)
	}
	for i := range scenes {
		if from, ok := remap(sceneIDs, scenes[i].ContinuesFromID); ok {
			scenes[i].ContinuesFromID = from
		} else {
			warn("cleared continuation of '%s': source %s is not in the snapshot", scenes[i].Name, *scenes[i].ContinuesFromID)
			scenes[i].ContinuesFromID = nil
		}
	}
	for _, reason := range pruneContinuations(scenes) {
		warn("%s", reason)
	}

	fixtures := make([]models.FixtureInfo, 0, len(snap.Fixtures))
	for _, f := range snap.Fixtures {
		f.ID, f.ProductionID = fixtureIDs[f.ID], productionID
		fixtures = append(fixtures, f)
	}

	notes := make([]models.Note, 0, len(snap.Notes))
	for _, n := range snap.Notes {
		n.ID, n.ProductionID = uuid.NewString(), productionID
		var ok bool
		if n.ScriptPageID, ok = remap(pageIDs, n.ScriptPageID); !ok {
			warn("cleared script page link of note '%s'", n.Title)
		}
		if n.SceneSongID, ok = remap(sceneIDs, n.SceneSongID); !ok {
			warn("cleared scene/song link of note '%s'", n.Title)
		}
		if n.FixtureID, ok = remap(fixtureIDs, n.FixtureID); !ok {
			warn("cleared fixture link of note '%s'", n.Title)
		}
		notes = append(notes, n)
	}

	presets := make([]models.Preset, 0, len(snap.Presets))
	for _, p := range snap.Presets {
		p.ID, p.ProductionID = presetIDs[p.ID], productionID
		if p.Type == models.PresetPrint || p.Type == models.PresetEmailMessage {
			p.Config = remapPresetRefs(p.Config, presetIDs)
		}
		presets = append(presets, p)
	}

	batches := []struct {
		rows  interface{}
		count int
	}{
		{&pages, len(pages)},
		{&scenes, len(scenes)},
		{&fixtures, len(fixtures)},
		{&notes, len(notes)},
		{&presets, len(presets)},
	}
	for _, b := range batches {
		if b.count == 0 {
			continue
		}
		if err := tx.CreateInBatches(b.rows, 100).Error; err != nil {
			return nil, err
		}
	}

	result.Pages, result.Scenes, result.Fixtures = len(pages), len(scenes), len(fixtures)
	result.Notes, result.Presets = len(notes), len(presets)
	return result, nil
}

// pruneContinuations re-applies the continuation rules to imported links in snapshot order.
// A link to a different type, to a source that already has a continuation, or one that closes
// a cycle is cleared. It returns one message per cleared link.
func pruneContinuations(scenes []models.SceneSong) []string {
	index := make(map[string]int, len(scenes))
	links := make([]*string, len(scenes))
	for i := range scenes {
		index[scenes[i].ID] = i
		links[i] = scenes[i].ContinuesFromID
		scenes[i].ContinuesFromID = nil
	}

	var cleared []string
	continued := make(map[string]bool, len(scenes))
	for i, from := range links {
		if from == nil {
			continue
		}
		scene := &scenes[i]
		source := &scenes[index[*from]]
		var reason string
		switch {
		case source.ID == scene.ID:
			reason = "it continues from itself"
		case source.Type != scene.Type:
			reason = fmt.Sprintf("a %s cannot continue from a %s", scene.Type, source.Type)
		case continued[source.ID]:
			reason = fmt.Sprintf("'%s' already has a continuation", source.Name)
		default:
			for cur := source; ; {
				if cur.ID == scene.ID {
					reason = fmt.Sprintf("continuing from '%s' would create a cycle", source.Name)
					break
				}
				if cur.ContinuesFromID == nil {
					break
				}
				cur = &scenes[index[*cur.ContinuesFromID]]
			}
		}
		if reason != "" {
			cleared = append(cleared, fmt.Sprintf("cleared continuation of '%s': %s", scene.Name, reason))
			continue
		}
		scene.ContinuesFromID = from
		continued[source.ID] = true
	}
	return cleared
}

// remapPresetRefs rewrites preset ids referenced from a print or email preset config
func remapPresetRefs(cfg models.JSON, ids map[string]string) models.JSON {
	var doc map[string]any
	if err := cfg.Decode(&doc); err != nil || doc == nil {
		return cfg
	}
	for _, key := range []string{"filterAndSortPresetId", "pageStylePresetId"} {
		if old, ok := doc[key].(string); ok {
			if mapped, ok := ids[old]; ok {
				doc[key] = mapped
			}
		}
	}
	out, err := models.NewJSON(doc)
	if err != nil {
		return cfg
	}
	return out
}
