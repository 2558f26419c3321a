package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"strings"

	"formsight_app_go/config"

	"github.com/resend/resend-go/v2"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

var welcomeHTML = template.Must(template.New("welcome").Parse(`
<h2>Welcome to FormSight, {{.UserName}}!</h2>
<p>Your account has been created. You can now sign in and start working with evaluation forms.</p>
<p><a href="{{.AppURL}}/login">Sign in</a></p>
`))

var resetHTML = template.Must(template.New("reset").Parse(`
<h2>Password reset requested</h2>
<p>Hi {{.UserName}},</p>
<p>We received a request to reset your password. This link is valid for 24 hours.</p>
<p><a href="{{.ResetURL}}">Reset your password</a></p>
<p>If you did not request this, you can ignore this email.</p>
`))

// BuildWelcomeEmail creates a welcome email for new users
func BuildWelcomeEmail(cfg *config.Config, userEmail, userName string) *Email {
	var buf bytes.Buffer
	data := struct {
		UserName string
		AppURL   string
	}{UserName: userName, AppURL: cfg.AppURL}

	if err := welcomeHTML.Execute(&buf, data); err != nil {
		log.Printf("Error rendering welcome email: %v", err)
	}

	return &Email{
		To:       []string{userEmail},
		Subject:  "Welcome to FormSight",
		HTMLBody: buf.String(),
		TextBody: fmt.Sprintf("Welcome to FormSight, %s! Sign in at %s/login", userName, cfg.AppURL),
	}
}

// BuildPasswordResetEmail creates a password reset email with the token link
func BuildPasswordResetEmail(cfg *config.Config, userEmail, userName, token string) *Email {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", cfg.AppURL, token)

	var buf bytes.Buffer
	data := struct {
		UserName string
		ResetURL string
	}{UserName: userName, ResetURL: resetURL}

	if err := resetHTML.Execute(&buf, data); err != nil {
		log.Printf("Error rendering password reset email: %v", err)
	}

	return &Email{
		To:       []string{userEmail},
		Subject:  "Reset your FormSight password",
		HTMLBody: buf.String(),
		TextBody: fmt.Sprintf("Hi %s, reset your password here (valid 24h): %s", userName, resetURL),
	}
}

// SendEmail sends an email using the Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	// In test mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
	}
	if email.HTMLBody != "" {
		params.Html = email.HTMLBody
	}
	if email.TextBody != "" {
		params.Text = email.TextBody
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	log.Printf("Email sent successfully via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// SendEmailAsync sends an email in a goroutine so handlers don't block on delivery
func SendEmailAsync(cfg *config.Config, email *Email) {
	emailCopy := &Email{
		To:       append([]string{}, email.To...),
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
		TextBody: email.TextBody,
	}

	go func() {
		if err := SendEmail(cfg, emailCopy); err != nil {
			log.Printf("Error sending async email: %v", err)
		}
	}()
}

// logEmailToConsole logs email details in test mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\nEMAIL (test mode - not actually sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("%s\n", separator)
}
