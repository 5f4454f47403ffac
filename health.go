package shuttle

import (
	"crypto/tls"
	"net"
	"time"
)

// CheckEndpoint resolves the endpoint and verifies that a connection
// (completing the TLS handshake when TLS is on) can be established. It is
// meant to run once before a shuttle is launched; a failure here is a
// startup problem, not a delivery problem.
func CheckEndpoint(endpoint string, tlsCfg *TLSConfig, timeout time.Duration) error {
	addr, tc, err := ResolveEndpoint(endpoint, tlsCfg)
	if err != nil {
		return err
	}

	dialer := &net.Dialer{Timeout: timeout}

	var conn net.Conn
	if tc != nil {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tc)
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return err
	}
	return conn.Close()
}
