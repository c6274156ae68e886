// Package models holds the persisted records of the restock notification
// engine: subscriptions, delivery logs and per-user channel preferences.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Channel is a notification delivery medium.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
	ChannelInApp Channel = "in_app"
)

// Channels lists every supported channel in dispatch order.
var Channels = []Channel{ChannelEmail, ChannelPush, ChannelSMS, ChannelInApp}

// Subscription states. IN_PROGRESS marks a dispatch pass that has claimed the
// row but not yet finished.
const (
	SubscriptionActive     = "ACTIVE"
	SubscriptionInProgress = "IN_PROGRESS"
	SubscriptionFulfilled  = "FULFILLED"
)

// Delivery log statuses.
const (
	StatusPending = "PENDING"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
	StatusRetried = "RETRIED"
)

// DefaultMaxRetries bounds the retry loop of a delivery log entry.
const DefaultMaxRetries = 3

// RestockMessage is the body of every restock notification.
const RestockMessage = "Product back in stock! Check it out now."

// Subscription is a user's intent to be notified exactly once when a product
// comes back in stock. A partial unique index enforces at most one live
// (non-FULFILLED, non-deleted) row per (user, product) even under concurrent
// inserts; fulfilled and unsubscribed rows fall outside it, so re-subscribing
// creates a fresh record.
type Subscription struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	UserID    uint           `gorm:"not null;uniqueIndex:ux_sub_live_user_product,where:state <> 'FULFILLED' AND deleted_at IS NULL" json:"user_id"`
	ProductID uint           `gorm:"not null;uniqueIndex:ux_sub_live_user_product;index" json:"product_id"`
	State     string         `gorm:"size:20;not null;index" json:"state"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	SentAt    *time.Time     `json:"sent_at,omitempty"`
}

// DeliveryLog records one dispatch attempt lineage per (subscription, channel).
// Retries mutate the same row; rows are never deleted.
type DeliveryLog struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	SubscriptionID uint       `gorm:"not null;index" json:"subscription_id"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	ProductID      uint       `gorm:"not null" json:"product_id"`
	Channel        Channel    `gorm:"size:20;not null" json:"channel"`
	Message        string     `json:"message"`
	Status         string     `gorm:"size:20;not null;index" json:"status"`
	RetryCount     int        `gorm:"not null;default:0" json:"retry_count"`
	MaxRetries     int        `gorm:"not null" json:"max_retries"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
}

// Terminal reports whether the entry needs no further action.
func (l DeliveryLog) Terminal() bool {
	return l.Status == StatusSent || (l.Status == StatusFailed && l.RetryCount >= l.MaxRetries)
}

// Preference holds a user's per-channel opt-ins. One row per user, created
// lazily on the first update.
type Preference struct {
	ID           uint      `gorm:"primarykey" json:"-"`
	UserID       uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	EmailEnabled bool      `json:"email_enabled"`
	PushEnabled  bool      `json:"push_enabled"`
	SMSEnabled   bool      `json:"sms_enabled"`
	InAppEnabled bool      `json:"in_app_enabled"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DefaultPreference is what the store hands out before a user has saved
// anything: email and in-app on, push and SMS off.
func DefaultPreference(userID uint) Preference {
	return Preference{UserID: userID, EmailEnabled: true, InAppEnabled: true}
}

// Enabled reports whether the given channel is switched on.
func (p Preference) Enabled(c Channel) bool {
	switch c {
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelPush:
		return p.PushEnabled
	case ChannelSMS:
		return p.SMSEnabled
	case ChannelInApp:
		return p.InAppEnabled
	}
	return false
}

// EnabledChannels returns the subset of Channels the preference enables.
func (p Preference) EnabledChannels() []Channel {
	var enabled []Channel
	for _, c := range Channels {
		if p.Enabled(c) {
			enabled = append(enabled, c)
		}
	}
	return enabled
}
