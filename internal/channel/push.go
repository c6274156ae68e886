package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/directory"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/models"
)

// Push posts to an FCM-style HTTP gateway keyed by device token.
type Push struct {
	gatewayURL string
	client     *http.Client
	dir        directory.Directory
}

func NewPush(gatewayURL string, dir directory.Directory) *Push {
	return &Push{
		gatewayURL: gatewayURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		dir:        dir,
	}
}

func (p *Push) Channel() models.Channel { return models.ChannelPush }

func (p *Push) Send(ctx context.Context, userID uint, message string) error {
	token, err := p.dir.Contact(ctx, userID, models.ChannelPush)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]string{"to": token, "body": message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push gateway returned %d", resp.StatusCode)
	}
	return nil
}
