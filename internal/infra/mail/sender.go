package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"

	"gopkg.in/gomail.v2"

	"github.com/James-lakeshore/generac-crm-backend/internal/infra/queue"
)

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	if from == "" {
		from = user
	}
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

// SendLeadNotification emails the back office about a freshly captured lead.
func (s *EmailSender) SendLeadNotification(to string, payload queue.LeadEventPayload) error {
	data := LeadNotificationData{
		Name:   payload.Name,
		Email:  payload.Email,
		Phone:  payload.Phone,
		Source: payload.Source,
		LeadID: payload.LeadID,
	}

	tmplPath := filepath.Join("templates", "lead_notification.html")
	t, err := template.ParseFiles(tmplPath)
	if err != nil {
		return fmt.Errorf("parse notification template: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return fmt.Errorf("render notification template: %w", err)
	}

	subject := "New lead"
	if data.Name != "" {
		subject = fmt.Sprintf("New lead: %s", data.Name)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send notification email: %w", err)
	}

	return nil
}
