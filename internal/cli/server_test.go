package cli

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestOriginChecker(t *testing.T) {
	if originChecker(nil) != nil {
		t.Fatalf("expected nil checker when no origins are configured")
	}

	check := originChecker([]string{"https://quiz.example.com"})
	cases := map[string]bool{
		"":                         true,
		"https://quiz.example.com": true,
		"https://evil.example.com": false,
	}
	for origin, want := range cases {
		r := httptest.NewRequest("GET", "/ws/round", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		if got := check(r); got != want {
			t.Fatalf("origin %q: expected %v, got %v", origin, want, got)
		}
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"start", "migrate", "seed"} {
		found, _, err := cmd.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Fatalf("expected %s subcommand, got %v (%v)", name, found, err)
		}
	}
}

func TestServeReturnsListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	server := &http.Server{Addr: busy.Addr().String(), Handler: http.NotFoundHandler()}
	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), server, zap.NewNop()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected an error for a port already in use")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve kept waiting after the listener failed")
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	done := make(chan error, 1)
	go func() { done <- serve(ctx, server, zap.NewNop()) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop after cancel")
	}
}
