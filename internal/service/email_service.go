package service

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailService handles sending notification emails via Amazon SES
type EmailService struct {
	client      *sesv2.Client
	fromEmail   string
	fromName    string
	notifyEmail string
	appBaseURL  string
	enabled     bool
	debug       bool
}

// NewEmailService creates a new email service. When fromEmail or
// notifyEmail is empty the service is created disabled and every send
// becomes a logged no-op.
func NewEmailService(awsRegion, fromEmail, fromName, notifyEmail, appBaseURL string, debug bool) (*EmailService, error) {
	if fromEmail == "" || notifyEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL or NOTIFY_EMAIL not configured")
		return &EmailService{
			enabled: false,
			debug:   debug,
		}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service with AWS SES")
		log.Printf("[DEBUG] AWS Region: %s", awsRegion)
		log.Printf("[DEBUG] From Email: %s", fromEmail)
		log.Printf("[DEBUG] Notify Email: %s", notifyEmail)
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sesv2.NewFromConfig(cfg)

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &EmailService{
		client:      client,
		fromEmail:   fromEmail,
		fromName:    fromName,
		notifyEmail: notifyEmail,
		appBaseURL:  appBaseURL,
		enabled:     true,
		debug:       debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendGoalCompletionEmail notifies the program coordinator that a kid
// finished every reading goal for the week
func (s *EmailService) SendGoalCompletionEmail(ctx context.Context, kidName, weekKey string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): goal completion for %s", kidName)
		return nil
	}

	subject := fmt.Sprintf("%s completed all reading goals for %s", kidName, weekKey)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #2e7d32; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Weekly Goals Complete!</h1>
		</div>
		<div class="content">
			<p><strong>%s</strong> just checked off the last reading goal for week %s.</p>
			<p>You can review their checklist and reading log on the admin dashboard:</p>
			<p><a href="%s/admin">%s/admin</a></p>
		</div>
		<div class="footer">
			<p>This is an automated email from Read &amp; Rise. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, kidName, weekKey, s.appBaseURL, s.appBaseURL)

	textBody := fmt.Sprintf(`%s just checked off the last reading goal for week %s.

Review their checklist and reading log: %s/admin

---
This is an automated email from Read & Rise. Please do not reply.
`, kidName, weekKey, s.appBaseURL)

	return s.sendEmail(ctx, s.notifyEmail, subject, htmlBody, textBody)
}

// SendBackupRestoredEmail notifies the coordinator after a backup import
// finishes, including how many families failed to restore
func (s *EmailService) SendBackupRestoredEmail(ctx context.Context, restored, failed int) error {
	if !s.enabled {
		log.Println("Skipping email send (service disabled): backup restored notice")
		return nil
	}

	subject := "Read & Rise backup restored"
	textBody := fmt.Sprintf(`A backup import just completed.

Families restored: %d
Families failed:   %d

Check the admin dashboard to verify the data: %s/admin
`, restored, failed, s.appBaseURL)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body>
	<p>A backup import just completed.</p>
	<p>Families restored: <strong>%d</strong><br>
	Families failed: <strong>%d</strong></p>
	<p>Check the <a href="%s/admin">admin dashboard</a> to verify the data.</p>
</body>
</html>
`, restored, failed, s.appBaseURL)

	return s.sendEmail(ctx, s.notifyEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	if s.debug {
		log.Printf("[DEBUG] sendEmail called: to=%s, subject=%s", toEmail, subject)
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message ID: %s", *result.MessageId)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
