package models

import (
	"gorm.io/gorm"
)

// TrackerType identifies the external issue tracker vendor.
type TrackerType string

const (
	TrackerYandex TrackerType = "yandex"
)

// Role represents a user's role within one tracker.
type Role string

const (
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Tracker is a configured connection to one external issue-tracking
// organization. Either the cloud id or the org id identifies it upstream.
type Tracker struct {
	ID            int64       `json:"id" gorm:"primaryKey;autoIncrement"`
	Name          string      `json:"name" gorm:"not null"`
	TrackerType   TrackerType `json:"tracker_type" gorm:"not null;default:'yandex'"`
	YandexCloudID string      `json:"yandex_cloud_id"`
	YandexOrgID   string      `json:"yandex_org_id"`
	IsActive      bool        `json:"is_active" gorm:"default:true"`
	gorm.Model
}

// TableName specifies the table name for Tracker Model
func (Tracker) TableName() string {
	return "trackers"
}

// OrgID returns the identifier sent to the tracker API, preferring the
// organization id over the cloud id.
func (t Tracker) OrgID() string {
	if t.YandexOrgID != "" {
		return t.YandexOrgID
	}
	return t.YandexCloudID
}

// UserTrackerRole binds a user to a tracker with a role. At most one
// binding per user carries IsCurrent=true; the store clears all flags
// before setting a new one.
type UserTrackerRole struct {
	UserID    int64 `json:"user_id" gorm:"primaryKey"`
	TrackerID int64 `json:"tracker_id" gorm:"primaryKey"`
	Role      Role  `json:"role" gorm:"not null"`
	IsCurrent bool  `json:"is_current" gorm:"not null;default:false"`
}

// TableName specifies the table name for UserTrackerRole Model
func (UserTrackerRole) TableName() string {
	return "user_tracker_roles"
}
