package notification

import (
	"fmt"

	"github.com/novamall/mall-backend/internal/domain"
	"gopkg.in/gomail.v2"
)

// EmailConfig holds SMTP configuration.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// EmailService sends transactional mail through SMTP. It implements
// auth.CodeSender for the verification code flows.
type EmailService struct {
	dialer *gomail.Dialer
	config EmailConfig
}

// NewEmailService creates a new email service.
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{
		dialer: gomail.NewDialer(config.Host, config.Port, config.User, config.Password),
		config: config,
	}
}

// SendCode delivers a verification code, with subject and body chosen by
// the code's purpose.
func (s *EmailService) SendCode(to string, purpose domain.CodePurpose, code string) error {
	var subject, intro string
	if purpose == domain.PurposeLoginTwoFactor {
		subject = "Your Login Code"
		intro = "Use this code to finish signing in to your account."
	} else {
		subject = "Verify Your Email Address"
		intro = "Thank you for registering! Use this code to verify your email address."
	}

	body := fmt.Sprintf(`<html><body>
		<h2>%s</h2>
		<p>%s</p>
		<h1 style="letter-spacing: 4px">%s</h1>
		<p>This code will expire in 10 minutes.</p>
		<p>If you did not request this code, you can ignore this email.</p>
	</body></html>`, subject, intro, code)

	return s.send(to, subject, body)
}

// SendOrderConfirmation sends a checkout receipt.
func (s *EmailService) SendOrderConfirmation(to string, order *domain.Order) error {
	subject := "Your Order Confirmation"

	items := ""
	for _, item := range order.Items {
		items += fmt.Sprintf("<li>%s &times; %d &ndash; $%.2f</li>", item.Name, item.Quantity, float64(item.UnitPriceCents)/100)
	}

	body := fmt.Sprintf(`<html><body>
		<h2>Thank you for your order!</h2>
		<p>Order <strong>%s</strong> has been placed.</p>
		<ul>%s</ul>
		<p>Total: <strong>$%.2f</strong></p>
	</body></html>`, order.ID, items, float64(order.TotalCents)/100)

	return s.send(to, subject, body)
}

func (s *EmailService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	if s.config.FromName != "" {
		m.SetAddressHeader("From", s.config.From, s.config.FromName)
	} else {
		m.SetHeader("From", s.config.From)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
