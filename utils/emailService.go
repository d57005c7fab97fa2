package utils

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer delivers one HTML email.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

// SendGridClient is the subset of *sendgrid.Client used here.
type SendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SESClient is the subset of *ses.Client used here.
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SendGridMailer struct {
	client SendGridClient
	from   *mail.Email
}

func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return NewSendGridMailerWithClient(sendgrid.NewSendClient(apiKey), from)
}

func NewSendGridMailerWithClient(client SendGridClient, from string) *SendGridMailer {
	return &SendGridMailer{client: client, from: mail.NewEmail(senderName, from)}
}

func (m *SendGridMailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return nil
	}
	msg := mail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.Subject = subject

	p := mail.NewPersonalization()
	for _, addr := range to {
		p.AddTos(mail.NewEmail("", addr))
	}
	msg.AddPersonalizations(p)
	msg.AddContent(mail.NewContent("text/html", htmlBody))

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

type SESMailer struct {
	client SESClient
	from   string
}

func NewSESMailer(client SESClient, from string) *SESMailer {
	return &SESMailer{client: client, from: from}
}

func (m *SESMailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return nil
	}
	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(m.from),
		Destination: &types.Destination{ToAddresses: to},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses: %w", err)
	}
	return nil
}

const senderName = "Brewzone Coffee Academy"

// EmailTemplate wraps a plain-text title and message in the academy's mail
// layout. Both are HTML-escaped: they carry applicant names and operator notes.
func EmailTemplate(title string, message string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F1EA; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #3B2416; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #3B2416; line-height: 1.6; }
			.content h2 { color: #3B2416; margin-top: 0; }
			.footer { background-color: #F6F1EA; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0D6C8; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>BREWZONE COFFEE ACADEMY</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				<p>%s</p>
			</div>
			<div class="footer">
				This message was sent about your class registration.
			</div>
		</div>
	</body>
	</html>
	`, html.EscapeString(title), html.EscapeString(message))
}
