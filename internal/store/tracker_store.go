package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ProfiFlow/backend/internal/models"

	"gorm.io/gorm"
)

// TrackerStore owns tracker rows.
type TrackerStore struct {
	db *gorm.DB
}

// NewTrackerStore creates a TrackerStore backed by db.
func NewTrackerStore(db *gorm.DB) *TrackerStore {
	return &TrackerStore{db: db}
}

// GetByID returns the tracker with the given id, or nil when absent.
func (s *TrackerStore) GetByID(ctx context.Context, trackerID int64) (*models.Tracker, error) {
	var tracker models.Tracker
	err := s.db.WithContext(ctx).Where("id = ?", trackerID).First(&tracker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tracker: %w", err)
	}
	return &tracker, nil
}

// ListActive returns all active trackers.
func (s *TrackerStore) ListActive(ctx context.Context) ([]models.Tracker, error) {
	var trackers []models.Tracker
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&trackers).Error
	if err != nil {
		return nil, fmt.Errorf("list trackers: %w", err)
	}
	return trackers, nil
}

// CreateOrUpdate upserts a tracker identified by its cloud or org id.
func (s *TrackerStore) CreateOrUpdate(ctx context.Context, name, cloudID, orgID string) (*models.Tracker, error) {
	var tracker models.Tracker
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("yandex_cloud_id = ? AND yandex_cloud_id != ''", cloudID)
		if cloudID == "" {
			query = tx.Where("yandex_org_id = ? AND yandex_org_id != ''", orgID)
		}
		err := query.First(&tracker).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		tracker.Name = name
		tracker.TrackerType = models.TrackerYandex
		if cloudID != "" {
			tracker.YandexCloudID = cloudID
		}
		if orgID != "" {
			tracker.YandexOrgID = orgID
		}
		tracker.IsActive = true
		return tx.Save(&tracker).Error
	})
	if err != nil {
		return nil, fmt.Errorf("upsert tracker: %w", err)
	}
	return &tracker, nil
}
