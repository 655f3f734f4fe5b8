package services

import (
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/localnerve/lxnotes/internal/models"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

// fixtureIndex caches active fixtures by channel, keyed by production id
var fixtureIndex = cache.New(5*time.Minute, 10*time.Minute)

// ConfigureFixtureCache replaces the channel lookup cache with one using ttl
func ConfigureFixtureCache(ttl time.Duration) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	fixtureIndex = cache.New(ttl, 2*ttl)
}

// InvalidateFixtureIndex drops the cached channel index of a production
func InvalidateFixtureIndex(productionID string) {
	fixtureIndex.Delete(productionID)
}

// FixtureFilter narrows a fixture listing
type FixtureFilter struct {
	Active   *bool
	Channel  *int
	Position string
}

// ListFixtures returns the fixtures of a production by channel, position and unit
func ListFixtures(db *gorm.DB, productionID string, filter FixtureFilter) ([]models.FixtureInfo, error) {
	if _, err := GetProduction(db, productionID); err != nil {
		return nil, err
	}
	query := db.Where("production_id = ?", productionID)
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	if filter.Channel != nil {
		query = query.Where("channel = ?", *filter.Channel)
	}
	if filter.Position != "" {
		query = query.Where("position = ?", filter.Position)
	}
	var fixtures []models.FixtureInfo
	err := query.Order("channel, position, unit_number").Find(&fixtures).Error
	return fixtures, err
}

// GetFixture loads a fixture of a production
func GetFixture(db *gorm.DB, productionID, fixtureID string) (*models.FixtureInfo, error) {
	var fixture models.FixtureInfo
	err := db.Where("id = ? AND production_id = ?", fixtureID, productionID).First(&fixture).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("fixture", fixtureID)
		}
		return nil, err
	}
	return &fixture, nil
}

// DeleteFixture removes a fixture and unlinks notes that referenced it
func DeleteFixture(db *gorm.DB, productionID, fixtureID string) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		fixture, err := GetFixture(tx, productionID, fixtureID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Note{}).Where("fixture_id = ?", fixture.ID).Update("fixture_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(fixture).Error; err != nil {
			return err
		}
		return touchProduction(tx, productionID)
	})
	if err == nil {
		InvalidateFixtureIndex(productionID)
	}
	return err
}

// DeleteAllFixtures removes every fixture of a production and returns how many were removed
func DeleteAllFixtures(db *gorm.DB, productionID string) (int64, error) {
	var deleted int64
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Note{}).
			Where("production_id = ? AND fixture_id IS NOT NULL", productionID).
			Update("fixture_id", nil).Error; err != nil {
			return err
		}
		result := tx.Where("production_id = ?", productionID).Delete(&models.FixtureInfo{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return touchProduction(tx, productionID)
	})
	if err == nil {
		InvalidateFixtureIndex(productionID)
	}
	return deleted, err
}

// LookupChannel returns the active fixtures patched to a channel
func LookupChannel(db *gorm.DB, productionID string, channel int) ([]models.FixtureInfo, error) {
	if cached, ok := fixtureIndex.Get(productionID); ok {
		return slices.Clone(cached.(map[int][]models.FixtureInfo)[channel]), nil
	}

	active := true
	fixtures, err := ListFixtures(db, productionID, FixtureFilter{Active: &active})
	if err != nil {
		return nil, err
	}
	index := make(map[int][]models.FixtureInfo)
	for _, f := range fixtures {
		index[f.Channel] = append(index[f.Channel], f)
	}
	fixtureIndex.SetDefault(productionID, index)
	return slices.Clone(index[channel]), nil
}

// ParseChannel parses a positive channel number
func ParseChannel(value string) (int, bool) {
	channel, err := strconv.Atoi(value)
	if err != nil || channel <= 0 {
		return 0, false
	}
	return channel, true
}
