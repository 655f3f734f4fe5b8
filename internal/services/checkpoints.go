package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CheckpointDetail is a checkpoint with its snapshot document
type CheckpointDetail struct {
	models.Checkpoint
	Snapshot json.RawMessage `json:"snapshot"`
}

// CheckpointService stores production snapshots and mirrors them to object storage
type CheckpointService struct {
	DB            *gorm.DB
	Store         storage.Store
	Logger        *zap.Logger
	MirrorTimeout time.Duration

	mirrors sync.WaitGroup
}

// NewCheckpointService creates a checkpoint service; store may be nil
func NewCheckpointService(db *gorm.DB, store storage.Store, log *zap.Logger) *CheckpointService {
	if store == nil {
		store = storage.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckpointService{DB: db, Store: store, Logger: log.Named("checkpoints"), MirrorTimeout: 30 * time.Second}
}

// CreateCheckpoint snapshots a production. The object storage mirror runs in the background.
func (s *CheckpointService) CreateCheckpoint(ctx context.Context, productionID, label, createdBy string) (*models.Checkpoint, error) {
	snap, err := ExportProduction(s.DB, productionID)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	label = strings.TrimSpace(label)
	if label == "" {
		label = fmt.Sprintf("Version %d", snap.Production.Version)
	}
	checkpoint := &models.Checkpoint{
		ProductionID:      productionID,
		Label:             label,
		ProductionVersion: snap.Production.Version,
		SizeBytes:         int64(len(payload)),
		CreatedBy:         createdBy,
	}
	if err := checkpoint.Payload.UnmarshalJSON(payload); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Create(checkpoint).Error; err != nil {
		return nil, err
	}

	if s.Store.Enabled() {
		s.mirror(checkpoint.ID, storage.CheckpointKey(productionID, checkpoint.ID), payload)
	}
	return checkpoint, nil
}

// mirror uploads a checkpoint payload and records its object key. Failures are logged only.
func (s *CheckpointService) mirror(checkpointID, key string, payload []byte) {
	s.mirrors.Add(1)
	go func() {
		defer s.mirrors.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.MirrorTimeout)
		defer cancel()

		if err := s.Store.Put(ctx, key, payload, "application/json"); err != nil {
			s.Logger.Warn("checkpoint mirror failed", zap.String("checkpoint_id", checkpointID), zap.Error(err))
			return
		}
		err := s.DB.WithContext(ctx).Model(&models.Checkpoint{}).
			Where("id = ?", checkpointID).
			Update("object_key", key).Error
		if err != nil {
			s.Logger.Warn("checkpoint object key not recorded", zap.String("checkpoint_id", checkpointID), zap.Error(err))
			return
		}
		s.Logger.Debug("checkpoint mirrored", zap.String("checkpoint_id", checkpointID), zap.String("key", key))
	}()
}

// Wait blocks until background mirrors finish
func (s *CheckpointService) Wait() {
	s.mirrors.Wait()
}

// ListCheckpoints returns checkpoint metadata, newest first
func (s *CheckpointService) ListCheckpoints(productionID string) ([]models.Checkpoint, error) {
	if _, err := GetProduction(s.DB, productionID); err != nil {
		return nil, err
	}
	var checkpoints []models.Checkpoint
	err := s.DB.Omit("payload").
		Where("production_id = ?", productionID).
		Order("created_at DESC").
		Find(&checkpoints).Error
	return checkpoints, err
}

// GetCheckpoint loads a checkpoint with its snapshot
func (s *CheckpointService) GetCheckpoint(ctx context.Context, productionID, checkpointID string) (*CheckpointDetail, error) {
	var checkpoint models.Checkpoint
	err := s.DB.WithContext(ctx).Where("id = ? AND production_id = ?", checkpointID, productionID).First(&checkpoint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("checkpoint", checkpointID)
		}
		return nil, err
	}

	payload := []byte(checkpoint.Payload.JSON)
	if checkpoint.Payload.IsEmpty() && checkpoint.ObjectKey != "" {
		if payload, err = s.Store.Get(ctx, checkpoint.ObjectKey); err != nil {
			return nil, fmt.Errorf("load checkpoint %s: %w", checkpointID, err)
		}
	}
	return &CheckpointDetail{Checkpoint: checkpoint, Snapshot: payload}, nil
}

// DeleteCheckpoint removes a checkpoint and its mirrored object
func (s *CheckpointService) DeleteCheckpoint(ctx context.Context, productionID, checkpointID string) error {
	var checkpoint models.Checkpoint
	err := s.DB.WithContext(ctx).Omit("payload").
		Where("id = ? AND production_id = ?", checkpointID, productionID).
		First(&checkpoint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("checkpoint", checkpointID)
		}
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&checkpoint).Error; err != nil {
		return err
	}
	if checkpoint.ObjectKey != "" && s.Store.Enabled() {
		if err := s.Store.Delete(ctx, checkpoint.ObjectKey); err != nil {
			s.Logger.Warn("checkpoint object not deleted", zap.String("key", checkpoint.ObjectKey), zap.Error(err))
		}
	}
	return nil
}

// RestoreCheckpoint replaces the production content with the checkpoint snapshot.
// It fails with ErrVersion when the production version is no longer expectedVersion.
func (s *CheckpointService) RestoreCheckpoint(ctx context.Context, productionID, checkpointID string, expectedVersion uint64) (*SnapshotImport, error) {
	detail, err := s.GetCheckpoint(ctx, productionID, checkpointID)
	if err != nil {
		return nil, err
	}
	snap, err := DecodeSnapshot(detail.Snapshot)
	if err != nil {
		return nil, err
	}

	var result *SnapshotImport
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.Production{}).
			Where("id = ? AND version = ?", productionID, expectedVersion).
			UpdateColumns(map[string]interface{}{
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now(),
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			if _, err := GetProduction(tx, productionID); err != nil {
				return err
			}
			return ErrVersion
		}

		if err := clearProductionContent(tx, productionID, true); err != nil {
			return err
		}
		if result, err = writeSnapshotContent(tx, productionID, snap); err != nil {
			return err
		}
		result.Production, err = GetProduction(tx, productionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logFields := []zap.Field{
		zap.String("production_id", productionID),
		zap.String("checkpoint_id", checkpointID),
		zap.Uint64("from_version", expectedVersion),
	}
	s.Logger.Info("checkpoint restored", logFields...)
	return result, nil
}
