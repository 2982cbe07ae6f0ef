package utils

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrMailNotConfigured is returned when SMTP host or sender is missing.
var ErrMailNotConfigured = errors.New("smtp not configured")

// Mailer sends a plain text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPConfig carries the SMTP settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send sends a plain text email.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	cfg := m.cfg
	if cfg.Host == "" || cfg.From == "" {
		return ErrMailNotConfigured
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	msg := buildMessage(cfg, to, subject, body)

	if !cfg.TLS {
		// Plain SMTP without TLS (not recommended)
		return smtp.SendMail(addr, auth, cfg.From, []string{to}, msg)
	}

	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	// ensure we don't hang forever
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))
	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
			return err
		}
	}
	if cfg.Username != "" {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(cfg SMTPConfig, to, subject, body string) []byte {
	fromName := cfg.FromName
	if fromName == "" {
		fromName = "bbsforum"
	}
	headers := [][2]string{
		{"From", fmt.Sprintf("%s <%s>", mime.BEncoding.Encode("UTF-8", fromName), cfg.From)},
		{"To", to},
		{"Subject", mime.BEncoding.Encode("UTF-8", subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
	}
	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}

// LogMailer only logs messages. Used when SMTP is not configured so local setups
// can still complete the verification flow from the log.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, body string) error {
	Logger.Info("mail (smtp disabled)", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}
