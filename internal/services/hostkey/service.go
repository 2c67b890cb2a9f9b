// Package hostkey scans a remote host for its SSH host key.
package hostkey

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/tnrlabs/thunder-runner/internal/models"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Service defines the interface for host-key scanning.
type Service interface {
	Scan(ctx context.Context, host string, port, maxAttempts int, interval time.Duration) (string, error)
}

// Dialer opens an SSH connection far enough to run the host key exchange.
type Dialer interface {
	Dial(network, addr string, config *ssh.ClientConfig) error
}

// DefaultDialer is the default SSH dialer.
type DefaultDialer struct{}

// Dial performs an SSH handshake against addr.
func (d *DefaultDialer) Dial(network, addr string, config *ssh.ClientConfig) error {
	client, err := ssh.Dial(network, addr, config)
	if err != nil {
		return err
	}
	return client.Close()
}

// errKeyCaptured aborts the handshake once the host key has been seen; the
// scan never needs to authenticate.
var errKeyCaptured = errors.New("host key captured")

// Impl implements the hostkey Service interface.
type Impl struct {
	dialer Dialer
	logger zerolog.Logger
}

// New creates a new host-key scanner.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		dialer: &DefaultDialer{},
		logger: logger,
	}
}

// NewWithDialer creates a new host-key scanner with a custom dialer (for testing).
func NewWithDialer(logger zerolog.Logger, dialer Dialer) *Impl {
	return &Impl{
		dialer: dialer,
		logger: logger,
	}
}

// Scan dials host:port until the server presents its host key and returns a
// known_hosts line for it. The pod's sshd may not accept connections right
// after the pod reports running, so the dial is retried up to maxAttempts at
// a fixed interval. Exhausting the budget fails with a HostKeyScanError.
func (s *Impl) Scan(ctx context.Context, host string, port, maxAttempts int, interval time.Duration) (string, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var line string
	config := &ssh.ClientConfig{
		User: "root",
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			line = knownhosts.Line([]string{addr}, key)
			return errKeyCaptured
		},
		Timeout: 10 * time.Second,
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.dialer.Dial("tcp", addr, config)
		if line != "" {
			s.logger.Info().
				Str("addr", addr).
				Int("attempt", attempt).
				Msg("host key captured")
			return line, nil
		}
		lastErr = err

		s.logger.Debug().
			Err(err).
			Str("addr", addr).
			Int("attempt", attempt).
			Msg("host key scan attempt failed")

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}

	return "", &models.HostKeyScanError{Host: host, Port: port, Attempts: maxAttempts, Err: lastErr}
}
