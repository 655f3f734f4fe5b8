package services

import (
	"testing"

	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func mustPage(t *testing.T, db *gorm.DB, productionID, number, firstCue string) *models.ScriptPage {
	t.Helper()
	input := ScriptPageInput{PageNumber: strPtr(number)}
	if firstCue != "" {
		input.FirstCueNumber = strPtr(firstCue)
	}
	page, err := CreateScriptPage(db, productionID, input)
	require.NoError(t, err)
	return page
}

func mustScene(t *testing.T, db *gorm.DB, productionID, pageID, name string, kind models.SceneSongType) *models.SceneSong {
	t.Helper()
	scene, err := CreateSceneSong(db, productionID, pageID, SceneSongInput{Name: strPtr(name), Type: &kind})
	require.NoError(t, err)
	return scene
}

func TestScriptPages(t *testing.T) {
	db := testutil.NewDB(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	mustPage(t, db, prod.ID, "10", "")
	mustPage(t, db, prod.ID, "2", "")
	p10a := mustPage(t, db, prod.ID, "10a", "")

	_, err := CreateScriptPage(db, prod.ID, ScriptPageInput{PageNumber: strPtr("2")})
	assertValidation(t, err)
	_, err = CreateScriptPage(db, prod.ID, ScriptPageInput{PageNumber: strPtr(" ")})
	assertValidation(t, err)

	pages, err := ListScriptPages(db, prod.ID)
	require.NoError(t, err)
	numbers := make([]string, len(pages))
	for i, p := range pages {
		numbers[i] = p.PageNumber
	}
	assert.Equal(t, []string{"2", "10", "10a"}, numbers)

	_, err = UpdateScriptPage(db, prod.ID, p10a.ID, ScriptPageInput{PageNumber: strPtr("10")})
	assertValidation(t, err)
	updated, err := UpdateScriptPage(db, prod.ID, p10a.ID, ScriptPageInput{PageNumber: strPtr("11"), FirstCueNumber: strPtr("40")})
	require.NoError(t, err)
	assert.Equal(t, "11", updated.PageNumber)
	require.NotNil(t, updated.FirstCueNumber)
	assert.Equal(t, "40", *updated.FirstCueNumber)
}

func TestDeleteScriptPageUnlinks(t *testing.T) {
	db := testutil.NewDB(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	p1 := mustPage(t, db, prod.ID, "1", "")
	p2 := mustPage(t, db, prod.ID, "2", "")
	scene := mustScene(t, db, prod.ID, p1.ID, "Act 1 Scene 1", models.SceneType)
	cont, err := ContinueSceneSong(db, prod.ID, scene.ID, p2.ID)
	require.NoError(t, err)

	note := testutil.CreateNote(t, db, models.Note{
		ProductionID: prod.ID, ModuleType: models.ModuleCue, Title: "Ghost",
		ScriptPageID: &p1.ID, SceneSongID: &scene.ID,
	})

	require.NoError(t, DeleteScriptPage(db, prod.ID, p1.ID))

	reloaded, err := GetNote(db, prod.ID, note.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.ScriptPageID)
	assert.Nil(t, reloaded.SceneSongID)

	_, err = GetSceneSong(db, prod.ID, scene.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	orphan, err := GetSceneSong(db, prod.ID, cont.ID)
	require.NoError(t, err)
	assert.Nil(t, orphan.ContinuesFromID)

	assert.ErrorIs(t, DeleteScriptPage(db, prod.ID, p1.ID), ErrNotFound)
}

func TestScenesSongsOrder(t *testing.T) {
	db := testutil.NewDB(t)
	prod := testutil.CreateProduction(t, db, "Oklahoma!")
	page := mustPage(t, db, prod.ID, "5", "")

	first := mustScene(t, db, prod.ID, page.ID, "Opening", models.SceneType)
	second := mustScene(t, db, prod.ID, page.ID, "Oh What a Beautiful Mornin'", models.SongType)
	assert.Equal(t, 0, first.OrderIndex)
	assert.Equal(t, 1, second.OrderIndex)

	_, err := CreateSceneSong(db, prod.ID, page.ID, SceneSongInput{Name: strPtr("x"), Type: ptr(models.SceneSongType("dance"))})
	assertValidation(t, err)
	_, err = CreateSceneSong(db, prod.ID, "missing", SceneSongInput{Name: strPtr("x"), Type: ptr(models.SceneType)})
	assert.ErrorIs(t, err, ErrNotFound)

	scenes, err := ListScenesSongs(db, prod.ID, page.ID)
	require.NoError(t, err)
	require.Len(t, scenes, 2)
	assert.Equal(t, first.ID, scenes[0].ID)
}

func TestContinueSceneSong(t *testing.T) {
	db := testutil.NewDB(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	p1 := mustPage(t, db, prod.ID, "1", "")
	p2 := mustPage(t, db, prod.ID, "2", "")
	p3 := mustPage(t, db, prod.ID, "3", "")
	existing := mustScene(t, db, prod.ID, p2.ID, "Interlude", models.SongType)
	scene := mustScene(t, db, prod.ID, p1.ID, "Battlements", models.SceneType)

	_, err := ContinueSceneSong(db, prod.ID, scene.ID, p1.ID)
	assertValidation(t, err)

	cont, err := ContinueSceneSong(db, prod.ID, scene.ID, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cont.OrderIndex)
	assert.Equal(t, "Battlements", cont.Name)
	require.NotNil(t, cont.ContinuesFromID)
	assert.Equal(t, scene.ID, *cont.ContinuesFromID)

	shifted, err := GetSceneSong(db, prod.ID, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, shifted.OrderIndex)

	_, err = ContinueSceneSong(db, prod.ID, scene.ID, p3.ID)
	assertValidation(t, err)

	tail, err := ContinueSceneSong(db, prod.ID, cont.ID, p3.ID)
	require.NoError(t, err)

	chain, err := ResolveChain(db, prod.ID, cont.ID)
	require.NoError(t, err)
	ids := []string{chain[0].ID, chain[1].ID, chain[2].ID}
	assert.Equal(t, []string{scene.ID, cont.ID, tail.ID}, ids)

	// removing the middle link splices the chain
	require.NoError(t, DeleteSceneSong(db, prod.ID, cont.ID))
	chain, err = ResolveChain(db, prod.ID, tail.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, scene.ID, chain[0].ID)
}

func TestSetContinuesFromRules(t *testing.T) {
	db := testutil.NewDB(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	other := testutil.CreateProduction(t, db, "Macbeth")
	p1 := mustPage(t, db, prod.ID, "1", "")
	p2 := mustPage(t, db, prod.ID, "2", "")
	op := mustPage(t, db, other.ID, "1", "")

	a := mustScene(t, db, prod.ID, p1.ID, "A", models.SceneType)
	b := mustScene(t, db, prod.ID, p2.ID, "B", models.SceneType)
	song := mustScene(t, db, prod.ID, p2.ID, "Song", models.SongType)
	foreign := mustScene(t, db, other.ID, op.ID, "Foreign", models.SceneType)

	tests := map[string]struct {
		scene  *models.SceneSong
		source string
	}{
		"self":             {a, a.ID},
		"other production": {a, foreign.ID},
		"different type":   {song, a.ID},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := UpdateSceneSong(db, prod.ID, tc.scene.ID, SceneSongInput{ContinuesFromID: strPtr(tc.source)})
			assertValidation(t, err)
		})
	}

	_, err := UpdateSceneSong(db, prod.ID, b.ID, SceneSongInput{ContinuesFromID: strPtr(a.ID)})
	require.NoError(t, err)

	_, err = UpdateSceneSong(db, prod.ID, a.ID, SceneSongInput{ContinuesFromID: strPtr(b.ID)})
	assertValidation(t, err)

	cleared, err := UpdateSceneSong(db, prod.ID, b.ID, SceneSongInput{ContinuesFromID: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.ContinuesFromID)
}

func TestCueOrderWarnings(t *testing.T) {
	db := testutil.NewDB(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	p1 := mustPage(t, db, prod.ID, "1", "10")
	p2 := mustPage(t, db, prod.ID, "2", "5")
	mustPage(t, db, prod.ID, "3", "20")

	mustSceneWithCue := func(pageID, name, cue string) *models.SceneSong {
		scene, err := CreateSceneSong(db, prod.ID, pageID, SceneSongInput{
			Name: strPtr(name), Type: ptr(models.SceneType), FirstCueNumber: strPtr(cue),
		})
		require.NoError(t, err)
		return scene
	}
	mustSceneWithCue(p1.ID, "first", "12")
	mustSceneWithCue(p1.ID, "second", "11")
	early := mustSceneWithCue(p1.ID, "early", "")
	late := mustSceneWithCue(p2.ID, "late", "")
	_, err := UpdateSceneSong(db, prod.ID, early.ID, SceneSongInput{ContinuesFromID: strPtr(late.ID)})
	require.NoError(t, err)

	warnings, err := CueOrderWarnings(db, prod.ID)
	require.NoError(t, err)

	kinds := make(map[string]int)
	for _, w := range warnings {
		kinds[w.Kind]++
	}
	assert.Equal(t, map[string]int{
		WarnPageCueOrder:         1,
		WarnSceneCueOrder:        1,
		WarnContinuationPosition: 1,
	}, kinds)
}

func TestCueOrderWarningsComparesAgainstHighestEarlierCue(t *testing.T) {
	db := testutil.NewDB(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	mustPage(t, db, prod.ID, "1", "10")
	p2 := mustPage(t, db, prod.ID, "2", "5")
	p3 := mustPage(t, db, prod.ID, "3", "7")
	mustPage(t, db, prod.ID, "4", "11")

	warnings, err := CueOrderWarnings(db, prod.ID)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	assert.Equal(t, p2.ID, warnings[0].ScriptPageID)
	assert.Equal(t, p3.ID, warnings[1].ScriptPageID)
	assert.Contains(t, warnings[1].Message, "before cue 10")
}

func TestUpdateSceneSongTypeChangeKeepsChainConsistent(t *testing.T) {
	db := testutil.NewDB(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	p1 := mustPage(t, db, prod.ID, "1", "")
	p2 := mustPage(t, db, prod.ID, "2", "")
	source := mustScene(t, db, prod.ID, p1.ID, "Storm", models.SceneType)
	cont, err := ContinueSceneSong(db, prod.ID, source.ID, p2.ID)
	require.NoError(t, err)

	song := models.SongType
	_, err = UpdateSceneSong(db, prod.ID, cont.ID, SceneSongInput{Type: &song})
	assertValidation(t, err)
	_, err = UpdateSceneSong(db, prod.ID, cont.ID, SceneSongInput{Type: &song, ContinuesFromID: strPtr(source.ID)})
	assertValidation(t, err)
	_, err = UpdateSceneSong(db, prod.ID, source.ID, SceneSongInput{Type: &song})
	assertValidation(t, err)

	unchanged, err := GetSceneSong(db, prod.ID, cont.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SceneType, unchanged.Type)
	require.NotNil(t, unchanged.ContinuesFromID)

	detached, err := UpdateSceneSong(db, prod.ID, cont.ID, SceneSongInput{Type: &song, ContinuesFromID: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, models.SongType, detached.Type)
	assert.Nil(t, detached.ContinuesFromID)
}
