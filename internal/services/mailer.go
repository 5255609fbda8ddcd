package services

import (
	"bytes"
	"context"
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/example/couture/internal/models"
)

//go:embed templates/*
var templateFS embed.FS

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers rendered email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends email through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds a mailer for the given relay.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send dials the relay and delivers msg as a plain-text email with an HTML alternative.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g := gomail.NewMessage()
	g.SetHeader("From", m.from)
	g.SetHeader("To", msg.To)
	g.SetHeader("Subject", msg.Subject)
	g.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		g.AddAlternative("text/html", msg.HTML)
	}
	return m.dialer.DialAndSend(g)
}

// LogMailer writes email to the log instead of sending it. Used when no SMTP
// relay is configured.
type LogMailer struct {
	log *zap.Logger
}

// NewLogMailer returns a LogMailer.
func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

// Send logs the message; the body only at debug level.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.log.Info("email delivery disabled, message not sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	m.log.Debug("email body", zap.String("to", msg.To), zap.String("text", msg.Text))
	return nil
}

// OTPPurpose selects the wording of a one-time code email.
type OTPPurpose string

const (
	PurposeVerifyEmail   OTPPurpose = "verify_email"
	PurposePasswordReset OTPPurpose = "password_reset"
)

var otpSubjects = map[OTPPurpose]string{
	PurposeVerifyEmail:   "Welcome! Verify Your Email Address",
	PurposePasswordReset: "Password Reset - Verify Your Email Address",
}

// EmailTemplates renders outgoing email.
type EmailTemplates struct {
	html         *htmltemplate.Template
	text         *texttemplate.Template
	companyName  string
	supportEmail string
}

// NewEmailTemplates parses the embedded templates.
func NewEmailTemplates(companyName, supportEmail string) (*EmailTemplates, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, err
	}
	return &EmailTemplates{html: html, text: text, companyName: companyName, supportEmail: supportEmail}, nil
}

type otpEmailData struct {
	Name          string
	Code          string
	ExpiryMinutes int
	CompanyName   string
	SupportEmail  string
	Reset         bool
}

// OTP renders the one-time code email for user.
func (t *EmailTemplates) OTP(user *models.User, code string, purpose OTPPurpose, ttl time.Duration) (Message, error) {
	name := user.FullName()
	if name == "" {
		name = user.Email
	}
	data := otpEmailData{
		Name:          name,
		Code:          code,
		ExpiryMinutes: int(ttl / time.Minute),
		CompanyName:   t.companyName,
		SupportEmail:  t.supportEmail,
		Reset:         purpose == PurposePasswordReset,
	}

	var html, text bytes.Buffer
	if err := t.html.ExecuteTemplate(&html, "otp.html", data); err != nil {
		return Message{}, err
	}
	if err := t.text.ExecuteTemplate(&text, "otp.txt", data); err != nil {
		return Message{}, err
	}
	return Message{
		To:      user.Email,
		Subject: otpSubjects[purpose],
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
