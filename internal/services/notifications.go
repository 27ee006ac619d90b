package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/harentsoaR/tour-booking-api/internal/models"
)

// Mailer delivers one message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, username, password), from: from}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. Used when no
// SMTP host is configured.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.log.Info("email", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}

type NotificationService struct {
	mailer Mailer
}

func NewNotificationService(mailer Mailer) *NotificationService {
	return &NotificationService{mailer: mailer}
}

func firstName(u *models.User) string {
	if f := strings.Fields(u.Name); len(f) > 0 {
		return f[0]
	}
	return u.Name
}

func (s *NotificationService) SendWelcome(ctx context.Context, u *models.User, url string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to Natours, we're glad to have you!\nUpload a photo and complete your account here: %s\n",
		firstName(u), url,
	)
	return s.mailer.Send(ctx, u.Email, "Welcome to the Natours Family!", body)
}

func (s *NotificationService) SendPasswordReset(ctx context.Context, u *models.User, url string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nForgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s\n"+
			"If you didn't forget your password, please ignore this email!\n",
		firstName(u), url,
	)
	return s.mailer.Send(ctx, u.Email, "Your password reset token (valid for only 10 minutes)", body)
}

func (s *NotificationService) SendBookingConfirmation(ctx context.Context, u *models.User, tour *models.Tour, price float64) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour booking of %s is confirmed. We charged $%.2f.\nSee you on the trail!\n",
		firstName(u), tour.Name, price,
	)
	return s.mailer.Send(ctx, u.Email, "Your Natours booking is confirmed", body)
}
