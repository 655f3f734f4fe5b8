package services

import (
	"context"
	"errors"
	"testing"

	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/storage"
	"github.com/localnerve/lxnotes/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCheckpointLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	prod := seedProduction(t, db)
	svc := NewCheckpointService(db, nil, nil)

	version := testutil.ProductionVersion(t, db, prod.ID)
	checkpoint, err := svc.CreateCheckpoint(ctx, prod.ID, "  ", "sm")
	require.NoError(t, err)
	assert.Equal(t, version, checkpoint.ProductionVersion)
	assert.Contains(t, checkpoint.Label, "Version")
	assert.Positive(t, checkpoint.SizeBytes)
	assert.Empty(t, checkpoint.ObjectKey)

	list, err := svc.ListCheckpoints(prod.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Payload.IsEmpty(), "listing omits the payload")

	detail, err := svc.GetCheckpoint(ctx, prod.ID, checkpoint.ID)
	require.NoError(t, err)
	snap, err := DecodeSnapshot(detail.Snapshot)
	require.NoError(t, err)
	assert.Len(t, snap.Notes, 1)

	// change the production, then restore
	notes, err := ListNotes(db, prod.ID, NoteFilter{})
	require.NoError(t, err)
	require.NoError(t, DeleteNote(db, prod.ID, notes[0].ID))
	testutil.CreateNote(t, db, models.Note{ProductionID: prod.ID, ModuleType: models.ModuleWork, Title: "After checkpoint"})

	current := testutil.ProductionVersion(t, db, prod.ID)
	_, err = svc.RestoreCheckpoint(ctx, prod.ID, checkpoint.ID, current-1)
	assert.ErrorIs(t, err, ErrVersion)

	result, err := svc.RestoreCheckpoint(ctx, prod.ID, checkpoint.ID, current)
	require.NoError(t, err)
	assert.Equal(t, current+1, result.Production.Version)
	assert.Equal(t, 1, result.Notes)

	notes, err = ListNotes(db, prod.ID, NoteFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ghost"}, titles(notes))

	require.NoError(t, svc.DeleteCheckpoint(ctx, prod.ID, checkpoint.ID))
	_, err = svc.GetCheckpoint(ctx, prod.ID, checkpoint.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteCheckpoint(ctx, prod.ID, checkpoint.ID), ErrNotFound)
}

func TestCheckpointRestoreMissingProduction(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	prod := seedProduction(t, db)
	svc := NewCheckpointService(db, nil, nil)

	checkpoint, err := svc.CreateCheckpoint(ctx, prod.ID, "Tech 1", "")
	require.NoError(t, err)
	assert.Equal(t, "Tech 1", checkpoint.Label)

	require.NoError(t, DeleteProduction(db, prod.ID))
	_, err = svc.RestoreCheckpoint(ctx, prod.ID, checkpoint.ID, checkpoint.ProductionVersion)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CreateCheckpoint(ctx, prod.ID, "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckpointMirror(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	prod := seedProduction(t, db)
	store := newMemoryStore()
	svc := NewCheckpointService(db, store, zap.NewNop())

	checkpoint, err := svc.CreateCheckpoint(ctx, prod.ID, "Preview", "")
	require.NoError(t, err)
	svc.Wait()

	key := storage.CheckpointKey(prod.ID, checkpoint.ID)
	assert.Equal(t, []string{key}, store.keys())

	var stored models.Checkpoint
	require.NoError(t, db.Omit("payload").First(&stored, "id = ?", checkpoint.ID).Error)
	assert.Equal(t, key, stored.ObjectKey)

	// a checkpoint whose payload lives only in storage is loaded from there
	require.NoError(t, db.Model(&models.Checkpoint{}).Where("id = ?", checkpoint.ID).Update("payload", "null").Error)
	detail, err := svc.GetCheckpoint(ctx, prod.ID, checkpoint.ID)
	require.NoError(t, err)
	_, err = DecodeSnapshot(detail.Snapshot)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCheckpoint(ctx, prod.ID, checkpoint.ID))
	assert.Empty(t, store.keys())
}

func TestCheckpointMirrorFailureIsLogged(t *testing.T) {
	db := testutil.NewDB(t)
	prod := seedProduction(t, db)
	store := newMemoryStore()
	store.putErr = errors.New("bucket unavailable")
	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewCheckpointService(db, store, zap.New(core))

	checkpoint, err := svc.CreateCheckpoint(context.Background(), prod.ID, "Preview", "")
	require.NoError(t, err)
	svc.Wait()

	entries := logs.FilterMessage("checkpoint mirror failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, checkpoint.ID, entries[0].ContextMap()["checkpoint_id"])
}
