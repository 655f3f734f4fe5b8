package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/localnerve/lxnotes/data"
	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/testutil"
	"github.com/localnerve/lxnotes/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func rawConfig(s string) *json.RawMessage {
	raw := json.RawMessage(s)
	return &raw
}

func mustPreset(t *testing.T, db *gorm.DB, productionID string, kind models.PresetType, name, config string) *models.Preset {
	t.Helper()
	preset, err := CreatePreset(db, productionID, PresetInput{Type: &kind, Name: strPtr(name), Config: rawConfig(config)})
	require.NoError(t, err)
	return preset
}

func TestSeedSystemPresets(t *testing.T) {
	db := testutil.NewDB(t)

	n, err := SeedSystemPresets(db, data.DefaultPresets)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = SeedSystemPresets(db, data.DefaultPresets)
	require.NoError(t, err)
	var count int64
	db.Model(&models.Preset{}).Where("production_id = ''").Count(&count)
	assert.Equal(t, int64(7), count, "reseeding refreshes in place")

	_, err = SeedSystemPresets(db, []byte(`[{"type":"page_style","name":"Bad","config":{"paperSize":"tabloid","orientation":"portrait"}}]`))
	assert.Error(t, err)
}

func TestPresetCRUD(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := SeedSystemPresets(db, data.DefaultPresets)
	require.NoError(t, err)
	prod := testutil.CreateProduction(t, db, "Hamlet")

	style := mustPreset(t, db, prod.ID, models.PresetPageStyle, "Legal Landscape", `{"paperSize":"legal","orientation":"landscape"}`)
	assert.Equal(t, uint64(1), testutil.ProductionVersion(t, db, prod.ID))

	_, err = CreatePreset(db, prod.ID, PresetInput{
		Type: ptr(models.PresetPageStyle), Name: strPtr("Legal Landscape"),
		Config: rawConfig(`{"paperSize":"a4","orientation":"portrait"}`),
	})
	assertValidation(t, err)

	_, err = CreatePreset(db, prod.ID, PresetInput{
		Type: ptr(models.PresetEmailMessage), Name: strPtr("Bad recipients"),
		Config: rawConfig(`{"recipients":["not-an-email"],"subject":"x"}`),
	})
	assertValidation(t, err)

	_, err = CreatePreset(db, prod.ID, PresetInput{Type: ptr(models.PresetType("macro")), Name: strPtr("x"), Config: rawConfig(`{}`)})
	assertValidation(t, err)

	presets, err := ListPresets(db, prod.ID, models.PresetPageStyle)
	require.NoError(t, err)
	require.Len(t, presets, 4)
	assert.True(t, presets[0].IsSystem())
	assert.Equal(t, style.ID, presets[3].ID)

	_, err = ListPresets(db, prod.ID, models.PresetType("macro"))
	assertValidation(t, err)

	renamed, err := UpdatePreset(db, prod.ID, style.ID, PresetInput{Name: strPtr("Legal Wide")})
	require.NoError(t, err)
	assert.Equal(t, "Legal Wide", renamed.Name)

	_, err = UpdatePreset(db, prod.ID, style.ID, PresetInput{Type: ptr(models.PresetPrint)})
	assertValidation(t, err)

	require.NoError(t, DeletePreset(db, prod.ID, style.ID))
	_, err = GetPreset(db, prod.ID, style.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSystemPresetsAreReadOnly(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := SeedSystemPresets(db, data.DefaultPresets)
	require.NoError(t, err)
	prod := testutil.CreateProduction(t, db, "Hamlet")

	presets, err := ListPresets(db, prod.ID, models.PresetFilterSort)
	require.NoError(t, err)
	require.NotEmpty(t, presets)
	system := presets[0]

	for _, err := range []error{
		DeletePreset(db, prod.ID, system.ID),
		func() error { _, err := UpdatePreset(db, prod.ID, system.ID, PresetInput{Name: strPtr("Mine")}); return err }(),
	} {
		var ce *types.CustomError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, http.StatusForbidden, ce.Code)
		assert.Equal(t, types.ErrTypeReadOnly, ce.Type)
	}
}

func TestPresetSingleDefault(t *testing.T) {
	db := testutil.NewDB(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	isDefault := true

	first, err := CreatePreset(db, prod.ID, PresetInput{
		Type: ptr(models.PresetPageStyle), Name: strPtr("One"), IsDefault: &isDefault,
		Config: rawConfig(`{"paperSize":"a4","orientation":"portrait"}`),
	})
	require.NoError(t, err)
	_, err = CreatePreset(db, prod.ID, PresetInput{
		Type: ptr(models.PresetPageStyle), Name: strPtr("Two"), IsDefault: &isDefault,
		Config: rawConfig(`{"paperSize":"a4","orientation":"landscape"}`),
	})
	require.NoError(t, err)

	reloaded, err := GetPreset(db, prod.ID, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)
}

func TestLoadPresetConfig(t *testing.T) {
	db := testutil.NewDB(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	preset := mustPreset(t, db, prod.ID, models.PresetFilterSort, "Critical work",
		`{"moduleType":"work","priorityFilters":["critical"],"sortField":"title","sortOrder":"desc"}`)

	var cfg FilterSortConfig
	_, err := LoadPresetConfig(db, prod.ID, preset.ID, models.PresetFilterSort, &cfg)
	require.NoError(t, err)
	filter := cfg.Filter()
	assert.Equal(t, models.ModuleWork, filter.ModuleType)
	assert.Equal(t, []models.Priority{models.PriorityCritical}, filter.Priorities)
	assert.Equal(t, SortTitle, filter.SortField)
	assert.Empty(t, filter.Statuses)

	var style PageStyleConfig
	_, err = LoadPresetConfig(db, prod.ID, preset.ID, models.PresetPageStyle, &style)
	assertValidation(t, err)

	other := testutil.CreateProduction(t, db, "Macbeth")
	_, err = LoadPresetConfig(db, other.ID, preset.ID, models.PresetFilterSort, &cfg)
	assert.ErrorIs(t, err, ErrNotFound)
}
