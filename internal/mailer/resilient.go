// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package mailer

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/mkosonen/kulkue/internal/logging"
	"github.com/mkosonen/kulkue/internal/models"
)

// ResilientMailer wraps a Mailer with a circuit breaker and a rate
// limiter. A flapping upstream trips the breaker instead of stalling the
// dispatcher; the limiter keeps outbound volume inside the provider's
// quota.
type ResilientMailer struct {
	inner   Mailer
	breaker *gobreaker.CircuitBreaker[struct{}]
	limiter *rate.Limiter
}

// NewResilient wraps inner. ratePerMinute <= 0 disables the limiter.
func NewResilient(inner Mailer, ratePerMinute int) *ResilientMailer {
	settings := gobreaker.Settings{
		Name:        "mailer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("from", from.String()).Str("to", to.String()).
				Msg("mailer circuit breaker state change")
		},
	}

	var limiter *rate.Limiter
	if ratePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), ratePerMinute)
	}

	return &ResilientMailer{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		limiter: limiter,
	}
}

// Send implements Mailer.
func (m *ResilientMailer) Send(ctx context.Context, msg models.NotificationMessage) error {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	_, err := m.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, m.inner.Send(ctx, msg)
	})
	return err
}

// Recording is a test Mailer capturing every sent message. FailWith, when
// set, is returned from Send instead of recording.
type Recording struct {
	Sent     []models.NotificationMessage
	FailWith error
}

// Send implements Mailer.
func (m *Recording) Send(ctx context.Context, msg models.NotificationMessage) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Sent = append(m.Sent, msg)
	return nil
}
