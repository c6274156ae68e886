// Package directory resolves user contact addresses from the external user
// service. User identity is not owned by this engine.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/models"
)

// Directory looks up the address a channel should deliver to.
type Directory interface {
	Contact(ctx context.Context, userID uint, channel models.Channel) (string, error)
}

// HTTPDirectory asks the user service for a user's contact record.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

func NewHTTP(baseURL string) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type contactRecord struct {
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DeviceToken string `json:"device_token"`
}

func (d *HTTPDirectory) Contact(ctx context.Context, userID uint, channel models.Channel) (string, error) {
	url := fmt.Sprintf("%s/v1/users/%d/contacts", d.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("user service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user service returned %d for user %d", resp.StatusCode, userID)
	}
	var rec contactRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return "", fmt.Errorf("decode contact record: %w", err)
	}

	var addr string
	switch channel {
	case models.ChannelEmail:
		addr = rec.Email
	case models.ChannelSMS:
		addr = rec.Phone
	case models.ChannelPush:
		addr = rec.DeviceToken
	}
	if addr == "" {
		return "", fmt.Errorf("user %d has no %s contact", userID, channel)
	}
	return addr, nil
}
