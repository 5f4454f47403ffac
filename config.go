package shuttle

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// Version is the current version of the program / library
	Version = "0.1.0"
)

// Input format constants.
const (
	InputFormatRaw = iota
	InputFormatJSON
)

// Default option values
const (
	DefaultAppName       = "syslog-shuttle"
	DefaultInputFormat   = InputFormatRaw
	DefaultFrontBuff     = 1000
	DefaultTimeout       = 5 * time.Second
	DefaultWaitDuration  = 250 * time.Millisecond
	DefaultMaxAttempts   = 3
	DefaultNumOutlets    = 1
	DefaultBatchSize     = 100
	DefaultStatsInterval = 0 * time.Second
	DefaultVerbose       = false
	DefaultEndpoint      = ""
)

// Endpoint resolution errors, raised once at outlet construction. Fatal to
// that shuttle's startup, never seen per event.
var (
	ErrMissingHost = errors.New("a host is required for endpoint")
	ErrMissingPort = errors.New("a port is required for endpoint")
)

// Config holds the various config options for a shuttle
type Config struct {
	FrontBuff     int
	NumOutlets    int
	MaxAttempts   int
	BatchSize     int
	InputFormat   int
	Endpoint      string
	StatsSource   string
	Verbose       bool
	Encoding      EncodingConfig
	TLS           *TLSConfig
	WaitDuration  time.Duration
	Timeout       time.Duration
	StatsInterval time.Duration
	OutletFunc    NewOutletFunc

	// ID is a unique identifier of the shuttle instance, set from the
	// linker supplied version by cmd/syslog-shuttle.
	ID string
}

// NewConfig returns a newly created Config, filled in with defaults
func NewConfig() Config {
	return Config{
		FrontBuff:     DefaultFrontBuff,
		NumOutlets:    DefaultNumOutlets,
		MaxAttempts:   DefaultMaxAttempts,
		BatchSize:     DefaultBatchSize,
		InputFormat:   DefaultInputFormat,
		Endpoint:      DefaultEndpoint,
		Verbose:       DefaultVerbose,
		WaitDuration:  DefaultWaitDuration,
		Timeout:       DefaultTimeout,
		StatsInterval: DefaultStatsInterval,
	}
}

// TLSConfig is the optional tls block of the config. A nil *TLSConfig means
// TLS is enabled with standard trust settings: this sink always encrypts
// unless explicitly told not to.
type TLSConfig struct {
	Enabled    bool
	SkipVerify bool
	ServerName string
	CAFile     string
	CertFile   string
	KeyFile    string
}

// clientConfig builds the tls.Config used to dial the endpoint, nil when TLS
// is disabled.
func (t *TLSConfig) clientConfig(host string) (*tls.Config, error) {
	if !t.Enabled {
		return nil, nil
	}

	tc := &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: t.SkipVerify,
	}
	if t.ServerName != "" {
		tc.ServerName = t.ServerName
	}
	if t.CAFile != "" {
		pem, err := os.ReadFile(t.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading tls ca file: %s", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", t.CAFile)
		}
		tc.RootCAs = pool
	}
	if t.CertFile != "" || t.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading tls client keypair: %s", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}

// ResolveEndpoint validates the configured endpoint and produces the dial
// address and TLS policy for the transport. Accepts bare "host:port" or a
// syslog:// / syslog+tls:// URI. Runs once per shuttle construction, not per
// event.
func ResolveEndpoint(endpoint string, tlsCfg *TLSConfig) (string, *tls.Config, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return "", nil, err
	}
	if host == "" {
		return "", nil, ErrMissingHost
	}
	if port == "" {
		return "", nil, ErrMissingPort
	}

	if tlsCfg == nil {
		tlsCfg = &TLSConfig{Enabled: true}
	}
	tc, err := tlsCfg.clientConfig(host)
	if err != nil {
		return "", nil, err
	}

	return net.JoinHostPort(host, port), tc, nil
}

func splitEndpoint(endpoint string) (host, port string, err error) {
	if endpoint == "" {
		return "", "", ErrMissingHost
	}

	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", "", fmt.Errorf("Error parsing endpoint: %s", err)
		}
		switch u.Scheme {
		case "syslog", "syslog+tcp", "syslog+tls":
			// no-op these are good
		default:
			return "", "", fmt.Errorf("Invalid URL scheme in provided endpoint: %s", endpoint)
		}
		return u.Hostname(), u.Port(), nil
	}

	host, port, err = net.SplitHostPort(endpoint)
	if err != nil {
		var aerr *net.AddrError
		if errors.As(err, &aerr) && strings.Contains(aerr.Err, "missing port") {
			return endpoint, "", nil
		}
		return "", "", fmt.Errorf("Invalid endpoint: %s", endpoint)
	}
	return host, port, nil
}
