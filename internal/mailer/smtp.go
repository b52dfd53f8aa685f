// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/mkosonen/kulkue/internal/models"
)

// SMTPMailer renders and delivers messages over a plain SMTP session.
type SMTPMailer struct {
	cfg         Config
	dialTimeout time.Duration
}

// NewSMTP returns an SMTP mailer for the given configuration.
func NewSMTP(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, dialTimeout: 30 * time.Second}
}

// Send renders the message body from its template and delivers it to every
// recipient in one SMTP session.
func (m *SMTPMailer) Send(ctx context.Context, msg models.NotificationMessage) error {
	if len(msg.Recipients) == 0 {
		return fmt.Errorf("message %q has no recipients", msg.Template)
	}
	body, err := Render(msg)
	if err != nil {
		return fmt.Errorf("render %q: %w", msg.Template, err)
	}
	return m.deliver(ctx, msg, body)
}

func (m *SMTPMailer) buildMessage(msg models.NotificationMessage, body string) string {
	fromName := m.cfg.FromName
	if fromName == "" {
		fromName = "Kulkue"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s <%s>\r\n", fromName, m.cfg.From))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.Recipients, ", ")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.String()
}

func (m *SMTPMailer) deliver(ctx context.Context, msg models.NotificationMessage, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	dialer := &net.Dialer{Timeout: m.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if m.cfg.UseTLS {
		tlsConfig := &tls.Config{
			ServerName: m.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("start TLS: %w", err)
		}
	}

	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	for _, rcpt := range msg.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("set recipient %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("start message: %w", err)
	}
	if _, err := writer.Write([]byte(m.buildMessage(msg, body))); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	// Quit failures after DATA are harmless; the message was accepted.
	_ = client.Quit()
	return nil
}
