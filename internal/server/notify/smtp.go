package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/supportchat/internal/logging"
)

const verificationTemplate = `<h1>Welcome to Poufmaker!</h1>
<p>Please click the link below to verify your email address:</p>
<a href="{{.Link}}">{{.Link}}</a>
<p>If you didn't create an account, you can safely ignore this email.</p>
`

const resetTemplate = `<h1>Password Reset Request</h1>
<p>You requested to reset your password. Click the link below to set a new password:</p>
<a href="{{.Link}}">{{.Link}}</a>
<p>If you didn't request this, you can safely ignore this email.</p>
<p>This link will expire in 1 hour.</p>
`

var (
	verificationTmpl = template.Must(template.New("verification").Parse(verificationTemplate))
	resetTmpl        = template.Must(template.New("reset").Parse(resetTemplate))
)

// SMTPConfig holds mail server settings. An empty Host switches the sender
// into log-only mode.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	AppURL   string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender renders HTML emails and hands them to an SMTP server.
type SMTPSender struct {
	cfg      SMTPConfig
	logger   logging.Logger
	sendMail sendMailFunc
}

func NewSMTPSender(cfg SMTPConfig, logger logging.Logger) *SMTPSender {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPSender{cfg: cfg, logger: logger.With("module", "notify"), sendMail: smtp.SendMail}
}

func (s *SMTPSender) SendVerificationEmail(ctx context.Context, email, token string) error {
	link := s.link("/verify-email", token)
	return s.send(ctx, email, "Verify your email address", verificationTmpl, link)
}

func (s *SMTPSender) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	link := s.link("/reset-password", token)
	return s.send(ctx, email, "Reset your password", resetTmpl, link)
}

func (s *SMTPSender) link(path, token string) string {
	return strings.TrimRight(s.cfg.AppURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func (s *SMTPSender) send(ctx context.Context, to, subject string, tmpl *template.Template, link string) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, map[string]string{"Link": link}); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	if s.cfg.Host == "" {
		s.logger.Info(ctx, "smtp host not configured, email not sent", "to", to, "subject", subject, "link", link)
		return nil
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.Write(body.Bytes())

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)

	if err := s.sendMail(addr, auth, s.cfg.From, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
