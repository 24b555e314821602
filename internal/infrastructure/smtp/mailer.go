package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/mail"
	"net/url"
	"text/template"
	"time"

	"github.com/dajohi/goemail"

	"github.com/go-notes-api/internal/config"
)

const codeSubject = "Your verification code"

var codeBody = template.Must(template.New("otp").Parse(`Hello,

Your verification code is {{.Code}}

It expires in {{.Minutes}} minutes. If you did not request it, ignore this email.
`))

// transport is satisfied by *goemail.SMTP.
type transport interface {
	Send(msg *goemail.Message) error
}

// CodeMailer emails verification codes over SMTP.
type CodeMailer struct {
	smtp     transport
	fromName string
	fromAddr string
	ttl      time.Duration
}

// NewCodeMailer builds the SMTP client from config. SMTP_HOST is host:port
// and SMTP_FROM may carry a display name.
func NewCodeMailer(cfg *config.Config) (*CodeMailer, error) {
	from, err := mail.ParseAddress(cfg.SMTPFrom)
	if err != nil {
		return nil, fmt.Errorf("parse SMTP_FROM: %w", err)
	}
	u := &url.URL{Scheme: cfg.SMTPScheme, Host: cfg.SMTPHost}
	if cfg.SMTPUsername != "" {
		u.User = url.UserPassword(cfg.SMTPUsername, cfg.SMTPPassword)
	}
	client, err := goemail.NewSMTP(u.String(), &tls.Config{InsecureSkipVerify: cfg.SMTPInsecure})
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &CodeMailer{smtp: client, fromName: from.Name, fromAddr: from.Address, ttl: cfg.OTPTTL}, nil
}

func (m *CodeMailer) SendCode(_ context.Context, to, code string) error {
	var body bytes.Buffer
	err := codeBody.Execute(&body, struct {
		Code    string
		Minutes int
	}{Code: code, Minutes: int(m.ttl / time.Minute)})
	if err != nil {
		return fmt.Errorf("render otp email: %w", err)
	}
	msg := goemail.NewMessage(m.fromAddr, codeSubject, body.String())
	if m.fromName != "" {
		msg.SetName(m.fromName)
	}
	msg.AddBCC(to)
	if err := m.smtp.Send(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
