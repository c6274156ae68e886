package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/models"
)

// DeliveryLogs is the append-mostly audit trail of dispatch attempts.
type DeliveryLogs struct {
	db *gorm.DB
}

func NewDeliveryLogs(db *gorm.DB) *DeliveryLogs {
	return &DeliveryLogs{db: db}
}

// Create opens a new attempt lineage for one (subscription, channel) pair.
func (s *DeliveryLogs) Create(ctx context.Context, sub models.Subscription, ch models.Channel, message string) (models.DeliveryLog, error) {
	entry := models.DeliveryLog{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		ProductID:      sub.ProductID,
		Channel:        ch,
		Message:        message,
		Status:         models.StatusPending,
		MaxRetries:     models.DefaultMaxRetries,
	}
	err := s.db.WithContext(ctx).Create(&entry).Error
	return entry, err
}

func (s *DeliveryLogs) Get(ctx context.Context, id uint) (models.DeliveryLog, error) {
	var entry models.DeliveryLog
	err := s.db.WithContext(ctx).First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DeliveryLog{}, fmt.Errorf("%w: delivery log %d", models.ErrNotFound, id)
	}
	return entry, err
}

func (s *DeliveryLogs) ListByUser(ctx context.Context, userID uint) ([]models.DeliveryLog, error) {
	var entries []models.DeliveryLog
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&entries).Error
	return entries, err
}

// ListFailed returns every FAILED entry, retryable or exhausted, newest first.
func (s *DeliveryLogs) ListFailed(ctx context.Context) ([]models.DeliveryLog, error) {
	var entries []models.DeliveryLog
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusFailed).
		Order("updated_at DESC").
		Find(&entries).Error
	return entries, err
}

// ListFailedRetryable returns FAILED entries that still have retry budget.
func (s *DeliveryLogs) ListFailedRetryable(ctx context.Context) ([]models.DeliveryLog, error) {
	var entries []models.DeliveryLog
	err := s.db.WithContext(ctx).
		Where("status = ? AND retry_count < max_retries", models.StatusFailed).
		Find(&entries).Error
	return entries, err
}

// MarkSent records a successful delivery and clears any previous failure.
func (s *DeliveryLogs) MarkSent(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.DeliveryLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        models.StatusSent,
			"sent_at":       at,
			"error_message": "",
		}).Error
}

// MarkFailed records a failed attempt. The message is kept even after retries
// are exhausted so the history view can surface the last error.
func (s *DeliveryLogs) MarkFailed(ctx context.Context, id uint, sendErr error) error {
	return s.db.WithContext(ctx).Model(&models.DeliveryLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        models.StatusFailed,
			"error_message": sendErr.Error(),
		}).Error
}

// ClaimRetry atomically bumps retry_count and moves the entry to RETRIED.
// Only one of several concurrent retries of the same entry can win the claim;
// losers and invalid calls get the typed retry errors.
func (s *DeliveryLogs) ClaimRetry(ctx context.Context, id uint) (models.DeliveryLog, error) {
	res := s.db.WithContext(ctx).Model(&models.DeliveryLog{}).
		Where("id = ? AND status IN ? AND retry_count < max_retries",
			id, []string{models.StatusFailed, models.StatusRetried}).
		Updates(map[string]any{
			"status":      models.StatusRetried,
			"retry_count": gorm.Expr("retry_count + 1"),
		})
	if res.Error != nil {
		return models.DeliveryLog{}, res.Error
	}
	if res.RowsAffected == 0 {
		entry, err := s.Get(ctx, id)
		if err != nil {
			return models.DeliveryLog{}, err
		}
		if entry.RetryCount >= entry.MaxRetries && entry.Status != models.StatusSent {
			return models.DeliveryLog{}, fmt.Errorf("%w: delivery log %d used %d of %d retries",
				models.ErrRetryExhausted, id, entry.RetryCount, entry.MaxRetries)
		}
		return models.DeliveryLog{}, fmt.Errorf("%w: delivery log %d is %s",
			models.ErrInvalidState, id, entry.Status)
	}
	return s.Get(ctx, id)
}
