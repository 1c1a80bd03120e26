package utils

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	"coursehub/logger"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const senderName = "CourseHub"

type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer delivers transactional email through SendGrid. Without an API key
// every message is logged and dropped.
type Mailer struct {
	client  mailClient
	from    *mail.Email
	timeout time.Duration
	log     *logger.Logger
	wg      sync.WaitGroup
}

func NewMailer(apiKey, sender string, baseLog *logger.Logger) *Mailer {
	m := &Mailer{
		from:    mail.NewEmail(senderName, sender),
		timeout: 15 * time.Second,
		log:     baseLog.With("component", "Mailer"),
	}
	if apiKey != "" {
		m.client = sendgrid.NewSendClient(apiKey)
	}
	return m
}

// Generic Send Email
func (m *Mailer) SendEmail(ctx context.Context, email, name, subject, htmlBody string) error {
	if m.client == nil {
		m.log.Debug("email disabled, message dropped", "subject", subject)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	message := mail.NewSingleEmail(m.from, subject, mail.NewEmail(name, email), "", htmlBody)
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		m.log.Error("error sending email", "subject", subject, "error", err)
		return err
	}
	if resp.StatusCode >= 300 {
		m.log.Error("email rejected", "subject", subject, "status", resp.StatusCode, "body", resp.Body)
		return fmt.Errorf("sendgrid: status %d", resp.StatusCode)
	}
	m.log.Info("email sent", "subject", subject)
	return nil
}

// Wait blocks until queued messages have been handed to SendGrid.
func (m *Mailer) Wait() {
	m.wg.Wait()
}

func (m *Mailer) sendAsync(email, name, subject, htmlBody string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_ = m.SendEmail(context.Background(), email, name, subject, htmlBody)
	}()
}

// HTML wrapper shared by every message.
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #1F2A44; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1F2A44; line-height: 1.6; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #3B82F6; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>COURSEHUB</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; CourseHub. You are receiving this email because of a purchase on your account.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

// --- Triggers ---

// EnrollmentCompleted confirms a paid enrollment to the buyer.
func (m *Mailer) EnrollmentCompleted(email, name, courseTitle string) {
	subject := "Enrollment Confirmed: " + courseTitle
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your payment was received and you are now enrolled in <strong>%s</strong>.</p>
		<div class="info-box">
			Open your dashboard to start the first lesson.
		</div>
	`, html.EscapeString(name), html.EscapeString(courseTitle))

	m.sendAsync(email, name, subject, getEmailTemplate("Enrollment Confirmed", body))
}
