// Package store persists the engine's three record sets on gorm. Every write
// that races with another writer is a single conditional UPDATE checked via
// RowsAffected, so locking stays per row.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/models"
)

// Subscriptions is the ledger of restock-notification intents.
type Subscriptions struct {
	db *gorm.DB
}

func NewSubscriptions(db *gorm.DB) *Subscriptions {
	return &Subscriptions{db: db}
}

// Subscribe registers a (user, product) intent. If an unfulfilled subscription
// already exists it is returned unchanged; the second return value reports
// whether a new row was created. Concurrent subscribes for the same pair are
// resolved by the partial unique index on live rows: the loser's insert hits
// the constraint and the winner's row is returned instead.
func (s *Subscriptions) Subscribe(ctx context.Context, userID, productID uint) (models.Subscription, bool, error) {
	if userID == 0 || productID == 0 {
		return models.Subscription{}, false, fmt.Errorf("%w: user_id and product_id are required", models.ErrValidation)
	}
	existing, err := s.getLive(ctx, userID, productID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Subscription{}, false, err
	}

	sub := models.Subscription{UserID: userID, ProductID: productID, State: models.SubscriptionActive}
	err = s.db.WithContext(ctx).Create(&sub).Error
	if err == nil {
		return sub, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.Subscription{}, false, err
	}
	// Lost the insert race; hand back the winner's row.
	existing, err = s.getLive(ctx, userID, productID)
	if err != nil {
		return models.Subscription{}, false, err
	}
	return existing, false, nil
}

func (s *Subscriptions) getLive(ctx context.Context, userID, productID uint) (models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ? AND product_id = ? AND state IN ?",
		userID, productID,
		[]string{models.SubscriptionActive, models.SubscriptionInProgress}).
		First(&sub).Error
	return sub, err
}

// Unsubscribe removes an ACTIVE subscription. A FULFILLED or claimed row is
// reported as an invalid transition, an unknown id as not found.
func (s *Subscriptions) Unsubscribe(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND state = ?", id, models.SubscriptionActive).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		sub, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: subscription %d is %s", models.ErrInvalidTransition, id, sub.State)
	}
	return nil
}

func (s *Subscriptions) Get(ctx context.Context, id uint) (models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).First(&sub, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Subscription{}, fmt.Errorf("%w: subscription %d", models.ErrNotFound, id)
	}
	return sub, err
}

func (s *Subscriptions) ListByUser(ctx context.Context, userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error
	return subs, err
}

func (s *Subscriptions) ListByProduct(ctx context.Context, productID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).Where("product_id = ?", productID).Find(&subs).Error
	return subs, err
}

// ListActiveByProduct returns the subscriptions a restock event must dispatch.
func (s *Subscriptions) ListActiveByProduct(ctx context.Context, productID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Where("product_id = ? AND state = ?", productID, models.SubscriptionActive).
		Find(&subs).Error
	return subs, err
}

// Claim atomically moves an ACTIVE subscription to IN_PROGRESS. A false result
// means another dispatch pass already owns or finished the row.
func (s *Subscriptions) Claim(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND state = ?", id, models.SubscriptionActive).
		Update("state", models.SubscriptionInProgress)
	return res.RowsAffected == 1, res.Error
}

// Release puts a claimed subscription back to ACTIVE so a later restock event
// can pick it up again. Used when a dispatch pass aborts before any send.
func (s *Subscriptions) Release(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND state = ?", id, models.SubscriptionInProgress).
		Update("state", models.SubscriptionActive).Error
}

// MarkFulfilled finishes a dispatch pass, ACTIVE|IN_PROGRESS -> FULFILLED.
func (s *Subscriptions) MarkFulfilled(ctx context.Context, id uint, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND state IN ?", id,
			[]string{models.SubscriptionActive, models.SubscriptionInProgress}).
		Updates(map[string]any{"state": models.SubscriptionFulfilled, "sent_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		sub, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: subscription %d is %s", models.ErrInvalidTransition, id, sub.State)
	}
	return nil
}
