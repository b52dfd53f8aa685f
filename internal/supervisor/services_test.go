// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer blocks in ListenAndServe until Shutdown is called, like a
// real http.Server.
type fakeServer struct {
	listenErr error
	shutdown  chan struct{}
	downCalls atomic.Int32
}

func newFakeServer() *fakeServer {
	return &fakeServer{shutdown: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.shutdown
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.downCalls.Add(1)
	close(f.shutdown)
	return nil
}

func TestHTTPServiceShutsDownOnCancel(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("service did not stop on cancel")
	}
	assert.Equal(t, int32(1), srv.downCalls.Load())
}

func TestHTTPServiceReportsListenFailure(t *testing.T) {
	srv := newFakeServer()
	srv.listenErr = errors.New("address in use")
	svc := NewHTTPService(srv, time.Second)

	err := svc.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
	assert.Zero(t, srv.downCalls.Load())
}

type fakeGC struct {
	runs atomic.Int32
	err  error
}

func (f *fakeGC) RunGC() error {
	f.runs.Add(1)
	return f.err
}

func TestGCServiceRunsOnInterval(t *testing.T) {
	gc := &fakeGC{}
	svc := NewGCService(gc, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Serve(ctx) }()

	require.Eventually(t, func() bool { return gc.runs.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestGCServiceKeepsTickingPastErrors(t *testing.T) {
	gc := &fakeGC{err: errors.New("value log busy")}
	svc := NewGCService(gc, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = svc.Serve(ctx) }()

	require.Eventually(t, func() bool { return gc.runs.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
}
