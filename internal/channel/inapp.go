package channel

import (
	"context"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/models"
)

// InApp performs no external delivery. The delivery log row is the in-app
// feed; clients read it back through the logs endpoint.
type InApp struct{}

func (InApp) Channel() models.Channel { return models.ChannelInApp }

func (InApp) Send(ctx context.Context, userID uint, message string) error {
	return nil
}
