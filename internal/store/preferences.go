package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/models"
)

// Preferences maps users to their channel opt-ins.
type Preferences struct {
	db *gorm.DB
}

func NewPreferences(db *gorm.DB) *Preferences {
	return &Preferences{db: db}
}

// Get returns the stored preference, or the defaults when the user has never
// saved one. Defaults are not persisted until the first Update.
func (s *Preferences) Get(ctx context.Context, userID uint) (models.Preference, error) {
	var pref models.Preference
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultPreference(userID), nil
	}
	return pref, err
}

// PreferenceUpdate carries the fields present in a partial update; nil leaves
// the stored value unchanged. Unknown JSON fields are ignored on decode.
type PreferenceUpdate struct {
	Email *bool `json:"email_enabled"`
	Push  *bool `json:"push_enabled"`
	SMS   *bool `json:"sms_enabled"`
	InApp *bool `json:"in_app_enabled"`
}

// Update merges the provided fields into the user's preference, creating the
// row from defaults when it does not exist yet.
func (s *Preferences) Update(ctx context.Context, userID uint, upd PreferenceUpdate) (models.Preference, error) {
	var pref models.Preference
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&pref).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			pref = models.DefaultPreference(userID)
		} else if err != nil {
			return err
		}
		if upd.Email != nil {
			pref.EmailEnabled = *upd.Email
		}
		if upd.Push != nil {
			pref.PushEnabled = *upd.Push
		}
		if upd.SMS != nil {
			pref.SMSEnabled = *upd.SMS
		}
		if upd.InApp != nil {
			pref.InAppEnabled = *upd.InApp
		}
		return tx.Save(&pref).Error
	})
	return pref, err
}
