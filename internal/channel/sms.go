package channel

import (
	"context"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/directory"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/models"
)

// SMS delivers through Twilio. Credentials come from the environment
// (TWILIO_ACCOUNT_SID / TWILIO_AUTH_TOKEN), which NewRestClient reads itself.
type SMS struct {
	client *twilio.RestClient
	from   string
	dir    directory.Directory
}

func NewSMS(from string, dir directory.Directory) *SMS {
	return &SMS{client: twilio.NewRestClient(), from: from, dir: dir}
}

func (s *SMS) Channel() models.Channel { return models.ChannelSMS }

func (s *SMS) Send(ctx context.Context, userID uint, message string) error {
	to, err := s.dir.Contact(ctx, userID, models.ChannelSMS)
	if err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(message)
	_, err = s.client.Api.CreateMessage(params)
	return err
}
