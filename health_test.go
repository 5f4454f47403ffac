package shuttle

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestCheckEndpoint(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	go func() {
		if conn, err := l.Accept(); err == nil {
			conn.Close()
		}
	}()

	if err := CheckEndpoint(l.Addr().String(), &TLSConfig{Enabled: false}, time.Second); err != nil {
		t.Fatalf("check failed: %v", err)
	}
}

func TestCheckEndpointRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	if err := CheckEndpoint(addr, &TLSConfig{Enabled: false}, time.Second); err == nil {
		t.Fatal("expected a connection error")
	}
}

func TestCheckEndpointBadEndpoint(t *testing.T) {
	err := CheckEndpoint("logs.example.com", nil, time.Second)
	if !errors.Is(err, ErrMissingPort) {
		t.Fatalf("expected ErrMissingPort, got %v", err)
	}
}
