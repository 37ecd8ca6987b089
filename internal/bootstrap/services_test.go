package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/session-engine/config"
)

func TestPlannedServices(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  []config.ServiceMode
	}{
		{
			name: "no services enabled",
			want: []config.ServiceMode{},
		},
		{
			name:  "token watch only",
			modes: []config.ServiceMode{config.ServiceModeTokenWatch},
			want:  []config.ServiceMode{config.ServiceModeTokenWatch},
		},
		{
			name:  "all services in declaration order",
			modes: []config.ServiceMode{config.ServiceModeTokenWatch, config.ServiceModeHTTP},
			want:  []config.ServiceMode{config.ServiceModeHTTP, config.ServiceModeTokenWatch},
		},
		{
			name:  "unknown mode ignored",
			modes: []config.ServiceMode{"reaper"},
			want:  []config.ServiceMode{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			planned := plannedServices(&ServiceOrchestrationConfig{}, enabled, slog.Default())

			got := make([]config.ServiceMode, 0, len(planned))
			for _, svc := range planned {
				got = append(got, svc.mode)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSuperviseServices_FailureStopsOthers(t *testing.T) {
	boom := errors.New("boom")
	var cancelled atomic.Bool

	err := superviseServices(context.Background(), []managedService{
		{mode: config.ServiceModeHTTP, run: func(ctx context.Context) error {
			<-ctx.Done()
			cancelled.Store(true)
			return nil
		}},
		{mode: config.ServiceModeTokenWatch, run: func(context.Context) error { return boom }},
	}, slog.Default())

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "tokenwatch")
	assert.True(t, cancelled.Load())
}

func TestSuperviseServices_CancelStopsCleanly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var stopped atomic.Int32
	wait := func(ctx context.Context) error {
		<-ctx.Done()
		stopped.Add(1)
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- superviseServices(ctx, []managedService{
			{mode: config.ServiceModeHTTP, run: wait},
			{mode: config.ServiceModeTokenWatch, run: wait},
		}, slog.Default())
	}()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("services did not stop")
	}
	assert.Equal(t, int32(2), stopped.Load())
}

func TestSuperviseServices_NothingToRun(t *testing.T) {
	require.Error(t, superviseServices(context.Background(), nil, slog.Default()))
}

func TestServeUntilDone_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- ServeUntilDone(ctx, server, time.Second, slog.Default()) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeUntilDone_ListenFailure(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:-1", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	err := ServeUntilDone(context.Background(), server, time.Second, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on 127.0.0.1:-1")
}

func TestNewHTTPServer_RequiresEngine(t *testing.T) {
	_, err := NewHTTPServer(HTTPServerConfig{})
	require.Error(t, err)
}

func TestRunServicesWithShutdown_RequiresConfig(t *testing.T) {
	if err := RunServicesWithShutdown(nil); err == nil {
		t.Fatal("expected error for nil orchestration config")
	}
	if err := RunServicesWithShutdown(&ServiceOrchestrationConfig{}); err == nil {
		t.Fatal("expected error for missing AppConfig")
	}
	if err := RunServicesWithShutdown(&ServiceOrchestrationConfig{Config: &config.AppConfig{}}); err == nil {
		t.Fatal("expected error for missing Engine")
	}
}
