// Package channel implements the delivery media a notification can go out on.
// The dispatcher iterates the enabled set through the Sender interface and
// never inspects concrete types.
package channel

import (
	"context"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/models"
)

// Sender delivers one message to one user over a single channel.
type Sender interface {
	Channel() models.Channel
	Send(ctx context.Context, userID uint, message string) error
}

// Registry maps channels to their senders.
type Registry map[models.Channel]Sender

func NewRegistry(senders ...Sender) Registry {
	r := make(Registry, len(senders))
	for _, s := range senders {
		r[s.Channel()] = s
	}
	return r
}

func (r Registry) Sender(c models.Channel) (Sender, bool) {
	s, ok := r[c]
	return s, ok
}
