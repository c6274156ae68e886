package channel

import (
	"context"
	"net/smtp"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/directory"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/models"
)

// Email delivers over SMTP submission (PLAIN auth, port 587 style).
type Email struct {
	Host      string
	Port      string
	From      string
	Password  string
	Directory directory.Directory
}

func (e *Email) Channel() models.Channel { return models.ChannelEmail }

func (e *Email) Send(ctx context.Context, userID uint, message string) error {
	to, err := e.Directory.Contact(ctx, userID, models.ChannelEmail)
	if err != nil {
		return err
	}
	subject := "Subject: Product restock alert\r\n"
	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	body := "<html><body>" + message + "</body></html>"
	msg := []byte(subject + mime + body)
	auth := smtp.PlainAuth("", e.From, e.Password, e.Host)
	return smtp.SendMail(e.Host+":"+e.Port, auth, e.From, []string{to}, msg)
}
