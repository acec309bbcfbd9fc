package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/miqat/umrah-bookings/pkg/config"
	"github.com/miqat/umrah-bookings/pkg/logger"
)

type Mailer struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	devMode bool
	Enabled bool
}

func NewMailer(cfg config.EmailConfig) *Mailer {
	m := &Mailer{
		Enabled: cfg.MailerSendKey != "" && cfg.FromEmail != "",
		devMode: cfg.DevMode,
		from: mailersend.From{
			Name:  cfg.FromName,
			Email: cfg.FromEmail,
		},
	}
	if m.Enabled {
		m.client = mailersend.NewMailersend(cfg.MailerSendKey)
	}
	return m
}

func (m *Mailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	if m.devMode {
		logger.Info("dev mailer", "to", toEmail, "subject", subject, "text", text)
		return "dev", nil
	}
	if !m.Enabled {
		return "", errors.New("mailer disabled (missing MAILERSEND_API_KEY or MAIL_FROM_EMAIL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	// MailerSend uses X-Message-Id
	return res.Header.Get("X-Message-Id"), nil
}

func (m *Mailer) SendVoucherConfirmed(toEmail, toName, reference string, checkIn, checkOut time.Time, totalAmount int64) error {
	subject := fmt.Sprintf("Booking %s confirmed", reference)
	stay := fmt.Sprintf("%s to %s", checkIn.Format("2 Jan 2006"), checkOut.Format("2 Jan 2006"))
	text := fmt.Sprintf("Your booking %s is confirmed. Stay: %s. Total: $%d.", reference, stay, totalAmount)
	html := fmt.Sprintf(`<p>Your booking <b>%s</b> is confirmed.</p><p>Stay: %s</p><p>Total: $%d</p>`, reference, stay, totalAmount)
	_, err := m.Send(toEmail, toName, subject, text, html)
	return err
}

func (m *Mailer) SendVoucherRejected(toEmail, toName, reference, reason string) error {
	subject := fmt.Sprintf("Booking %s - payment receipt rejected", reference)
	text := fmt.Sprintf("We could not verify the payment receipt for booking %s.", reference)
	if reason != "" {
		text += " Reason: " + reason
	}
	html := fmt.Sprintf(`<p>We could not verify the payment receipt for booking <b>%s</b>.</p>`, reference)
	if reason != "" {
		html += fmt.Sprintf("<p>Reason: %s</p>", reason)
	}
	_, err := m.Send(toEmail, toName, subject, text, html)
	return err
}
