package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Mailer sends one plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type EmailService struct {
	mailer  Mailer
	isDev   bool
	appURL  string
	appName string
}

// NewEmailService logs emails instead of sending them in development or when
// no Resend key is configured.
func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var mailer Mailer
	if apiKey != "" && !isDev {
		mailer = &resendMailer{client: resend.NewClient(apiKey), from: fromEmail}
	}

	return &EmailService{
		mailer:  mailer,
		isDev:   isDev,
		appURL:  appURL,
		appName: appName,
	}
}

type resendMailer struct {
	client *resend.Client
	from   string
}

func (m *resendMailer) Send(ctx context.Context, to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := m.client.Emails.SendWithContext(ctx, params)
	return err
}

func (s *EmailService) send(ctx context.Context, kind, to, subject, body string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject)
		return nil
	}

	if s.mailer == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	err := s.mailer.Send(ctx, to, subject, body)
	if err != nil {
		return fmt.Errorf("send %s email: %w", kind, err)
	}

	slog.Info("email sent", "type", kind, "to", to)
	return nil
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, email, name string) error {
	subject, body := welcomeEmailTemplate(name, s.appURL+"/studio", s.appName)
	return s.send(ctx, "welcome", email, subject, body)
}

func (s *EmailService) SendCardSoldEmail(ctx context.Context, email, name, cardTitle string, netCents int64, currency string) error {
	subject, body := cardSoldEmailTemplate(name, cardTitle, formatCents(netCents, currency), s.appURL+"/creator/earnings", s.appName)
	return s.send(ctx, "card_sold", email, subject, body)
}

func (s *EmailService) SendPayoutEmail(ctx context.Context, email, name string, amountCents int64, currency string) error {
	subject, body := payoutSentEmailTemplate(name, formatCents(amountCents, currency), s.appURL+"/creator/earnings", s.appName)
	return s.send(ctx, "payout_sent", email, subject, body)
}

func (s *EmailService) SendAccountDeletedEmail(ctx context.Context, email, name string) error {
	subject, body := accountDeletedEmailTemplate(name, s.appName)
	return s.send(ctx, "account_deleted", email, subject, body)
}
