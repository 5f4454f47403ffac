package shuttle

import (
	"errors"
	"testing"
)

func TestResolveEndpoint(t *testing.T) {
	addr, tc, err := ResolveEndpoint("logs.example.com:12345", nil)
	if err != nil {
		t.Fatal(err)
	}
	if addr != "logs.example.com:12345" {
		t.Fatalf("addr=%q", addr)
	}
	if tc == nil {
		t.Fatal("TLS should be enabled by default")
	}
	if tc.ServerName != "logs.example.com" {
		t.Fatalf("server name=%q", tc.ServerName)
	}
	if tc.InsecureSkipVerify {
		t.Fatal("default TLS policy should verify the endpoint")
	}
}

func TestResolveEndpointURI(t *testing.T) {
	addr, _, err := ResolveEndpoint("syslog+tls://logs.example.com:514", nil)
	if err != nil {
		t.Fatal(err)
	}
	if addr != "logs.example.com:514" {
		t.Fatalf("addr=%q", addr)
	}

	if _, _, err := ResolveEndpoint("http://logs.example.com:514", nil); err == nil {
		t.Fatal("non syslog scheme should be rejected")
	}
}

func TestResolveEndpointMissingPort(t *testing.T) {
	_, _, err := ResolveEndpoint("logs.example.com", nil)
	if !errors.Is(err, ErrMissingPort) {
		t.Fatalf("expected ErrMissingPort, got %v", err)
	}

	_, _, err = ResolveEndpoint("syslog://logs.example.com", nil)
	if !errors.Is(err, ErrMissingPort) {
		t.Fatalf("expected ErrMissingPort, got %v", err)
	}
}

func TestResolveEndpointMissingHost(t *testing.T) {
	for _, endpoint := range []string{"", ":12345", "syslog://:12345"} {
		_, _, err := ResolveEndpoint(endpoint, nil)
		if !errors.Is(err, ErrMissingHost) {
			t.Fatalf("endpoint %q: expected ErrMissingHost, got %v", endpoint, err)
		}
	}
}

func TestResolveEndpointTLSDisabled(t *testing.T) {
	_, tc, err := ResolveEndpoint("logs.example.com:12345", &TLSConfig{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}
	if tc != nil {
		t.Fatal("explicitly disabled TLS should produce no tls config")
	}
}

func TestResolveEndpointTLSVerbatim(t *testing.T) {
	_, tc, err := ResolveEndpoint("logs.example.com:12345", &TLSConfig{
		Enabled:    true,
		SkipVerify: true,
		ServerName: "other.example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !tc.InsecureSkipVerify {
		t.Fatal("skip verify should carry through")
	}
	if tc.ServerName != "other.example.com" {
		t.Fatalf("server name=%q", tc.ServerName)
	}
}

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig()
	if c.FrontBuff != DefaultFrontBuff {
		t.Fatalf("front buff=%d", c.FrontBuff)
	}
	if c.MaxAttempts != DefaultMaxAttempts {
		t.Fatalf("max attempts=%d", c.MaxAttempts)
	}
	if c.TLS != nil {
		t.Fatal("no tls block means default TLS policy, not an explicit one")
	}
}
