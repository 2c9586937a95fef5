package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ProfiFlow/backend/internal/models"

	"gorm.io/gorm"
)

// OAuthProfile is the subset of the identity provider's profile the store
// needs to create or refresh a user row.
type OAuthProfile struct {
	YandexID    int64
	Login       string
	Email       string
	DisplayName string
	FirstName   string
	LastName    string
	AvatarURL   string
}

// UserStore owns user rows and their tracker bindings.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a UserStore backed by db.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// GetByID returns the user with the given id, or nil when absent.
func (s *UserStore) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// CreateOrUpdateFromOAuth upserts a user from an OAuth login and stores the
// fresh token set.
func (s *UserStore) CreateOrUpdateFromOAuth(ctx context.Context, profile OAuthProfile, accessToken, refreshToken string, expiresAt time.Time) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("yandex_id = ?", profile.YandexID).First(&user).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		user.YandexID = profile.YandexID
		user.Login = profile.Login
		user.Email = profile.Email
		user.DisplayName = profile.DisplayName
		user.FirstName = profile.FirstName
		user.LastName = profile.LastName
		user.AvatarURL = profile.AvatarURL
		user.IsActive = true
		user.YandexToken = accessToken
		user.YandexRefreshToken = refreshToken
		user.YandexTokenExpires = &expiresAt
		user.LastLogin = &now
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user from oauth: %w", err)
	}
	return &user, nil
}

// UpdateTokens stores a refreshed token set for the user.
func (s *UserStore) UpdateTokens(ctx context.Context, userID int64, accessToken, refreshToken string, expiresAt time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"yandex_token":         accessToken,
			"yandex_refresh_token": refreshToken,
			"yandex_token_expires": expiresAt,
		}).Error
	if err != nil {
		return fmt.Errorf("update user tokens: %w", err)
	}
	return nil
}

// CurrentTracker returns the tracker and role marked current for the user,
// or nil when the user has no current binding.
func (s *UserStore) CurrentTracker(ctx context.Context, userID int64) (*models.Tracker, models.Role, error) {
	var binding models.UserTrackerRole
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_current = ?", userID, true).
		First(&binding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("get current tracker binding: %w", err)
	}

	var tracker models.Tracker
	if err := s.db.WithContext(ctx).Where("id = ?", binding.TrackerID).First(&tracker).Error; err != nil {
		return nil, "", fmt.Errorf("get current tracker: %w", err)
	}
	return &tracker, binding.Role, nil
}

// SetCurrentTracker binds the user to a tracker with the given role and
// marks it current. All other bindings of the user lose the current flag
// first, so exactly one tracker is current per user.
func (s *UserStore) SetCurrentTracker(ctx context.Context, userID, trackerID int64, role models.Role) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.UserTrackerRole{}).
			Where("user_id = ?", userID).
			Update("is_current", false).Error; err != nil {
			return err
		}

		var binding models.UserTrackerRole
		err := tx.Where("user_id = ? AND tracker_id = ?", userID, trackerID).First(&binding).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.UserTrackerRole{
				UserID:    userID,
				TrackerID: trackerID,
				Role:      role,
				IsCurrent: true,
			}).Error
		}
		if err != nil {
			return err
		}

		binding.Role = role
		binding.IsCurrent = true
		return tx.Save(&binding).Error
	})
	if err != nil {
		return fmt.Errorf("set current tracker: %w", err)
	}
	return nil
}

// UsersForTracker returns all active users bound to the tracker.
func (s *UserStore) UsersForTracker(ctx context.Context, trackerID int64) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN user_tracker_roles ON user_tracker_roles.user_id = users.id").
		Where("user_tracker_roles.tracker_id = ? AND users.is_active = ?", trackerID, true).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users for tracker: %w", err)
	}
	return users, nil
}
