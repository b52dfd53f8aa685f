// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package mailer delivers notification messages over SMTP.
package mailer

import (
	"context"

	"github.com/mkosonen/kulkue/internal/logging"
	"github.com/mkosonen/kulkue/internal/models"
)

// Mailer submits one rendered notification message. Implementations are
// fire-and-return: a nil error means the upstream accepted the message,
// not that it reached an inbox.
type Mailer interface {
	Send(ctx context.Context, msg models.NotificationMessage) error
}

// LogOnly records would-be sends in the log and drops them. Used when no
// SMTP host is configured, so the queue still drains in development.
type LogOnly struct{}

// Send implements Mailer.
func (LogOnly) Send(_ context.Context, msg models.NotificationMessage) error {
	logging.Info().
		Str("template", msg.Template).
		Strs("recipients", msg.Recipients).
		Str("subject", msg.Subject).
		Msg("mail delivery disabled, dropping message")
	return nil
}

// Config holds SMTP connection settings.
type Config struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	From     string `koanf:"from"`
	FromName string `koanf:"from_name"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	UseTLS   bool   `koanf:"use_tls"`

	// RatePerMinute bounds outbound sends; zero disables the limiter.
	RatePerMinute int `koanf:"rate_per_minute"`
}
