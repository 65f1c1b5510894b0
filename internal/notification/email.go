package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/poseidoneye/perception-server/internal/protocol"
	"github.com/poseidoneye/perception-server/pkg/config"
)

// EmailNotifier sends email notifications
type EmailNotifier struct {
	config *config.SMTPConfig
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{config: cfg}
}

// SendAlertNotification sends an email for an alert event
func (e *EmailNotifier) SendAlertNotification(event *protocol.AlertEvent) error {
	var subject string
	var body string
	var err error

	switch event.Type {
	case protocol.AlertTypeRaised:
		subject = fmt.Sprintf("🚨 Engine Alert %s - %s / %s", event.Severity, event.Vessel, event.EngineID)
		body, err = e.renderRaisedTemplate(event)
	case protocol.AlertTypeLowered:
		subject = fmt.Sprintf("✅ Engine Alert lowered to %s - %s / %s", event.Severity, event.Vessel, event.EngineID)
		body, err = e.renderLoweredTemplate(event)
	default:
		return fmt.Errorf("unknown alert event type: %s", event.Type)
	}

	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return e.sendEmail(subject, body)
}

func (e *EmailNotifier) renderRaisedTemplate(event *protocol.AlertEvent) (string, error) {
	tmpl := `
Engine Alert Raised
===================

Vessel: {{.Vessel}}
Engine: {{.EngineID}}
Component: {{.Component}}
Severity: {{.Previous}} -> {{.Severity}}
Anomaly Score: {{printf "%.4f" .Score}}
Degradation: {{printf "%.1f" .DegradationPct}}%
Time: {{.Timestamp}}

Description:
The health monitor for engine {{.EngineID}} on {{.Vessel}} has escalated
the alert state of component "{{.Component}}" from {{.Previous}} to
{{.Severity}}. The latest anomaly score is {{printf "%.4f" .Score}}.

Please review the engine status and take appropriate action.

---
PoseidonEye Perception Server
`

	t, err := template.New("raised").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, event); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (e *EmailNotifier) renderLoweredTemplate(event *protocol.AlertEvent) (string, error) {
	tmpl := `
Engine Alert Lowered
====================

Vessel: {{.Vessel}}
Engine: {{.EngineID}}
Component: {{.Component}}
Severity: {{.Previous}} -> {{.Severity}}
Time: {{.Timestamp}}

Description:
The alert state of component "{{.Component}}" on engine {{.EngineID}}
({{.Vessel}}) has been lowered from {{.Previous}} to {{.Severity}} after
a sustained run of calmer readings.

---
PoseidonEye Perception Server
`

	t, err := template.New("lowered").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, event); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (e *EmailNotifier) sendEmail(subject, body string) error {
	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		fmt.Printf("SMTP not configured, skipping email:\nSubject: %s\n%s\n", subject, body)
		return nil
	}

	// Construct message
	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", e.config.To)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message += "\r\n"
	message += body

	// Setup authentication
	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)

	// Send email
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	err := smtp.SendMail(addr, auth, e.config.From, []string{e.config.To}, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	fmt.Printf("Email sent successfully: %s\n", subject)
	return nil
}

// TestConnection tests the SMTP connection
func (e *EmailNotifier) TestConnection() error {
	if e.config.Username == "" {
		return fmt.Errorf("SMTP not configured")
	}

	// Try to connect
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	fmt.Println("SMTP connection test successful")
	return nil
}
