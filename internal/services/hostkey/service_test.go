package hostkey

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tnrlabs/thunder-runner/internal/models"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

type mockDialer struct {
	dialFunc func(network, addr string, config *ssh.ClientConfig) error
	calls    int
}

func (m *mockDialer) Dial(network, addr string, config *ssh.ClientConfig) error {
	m.calls++
	return m.dialFunc(network, addr, config)
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testHostKey(t *testing.T) ssh.PublicKey {
	t.Helper()

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return key
}

func TestScan_Success(t *testing.T) {
	key := testHostKey(t)

	dialer := &mockDialer{
		dialFunc: func(network, addr string, config *ssh.ClientConfig) error {
			// The real handshake runs the callback before auth.
			return config.HostKeyCallback(addr, nil, key)
		},
	}

	svc := NewWithDialer(testLogger(), dialer)
	line, err := svc.Scan(context.Background(), "1.2.3.4", 2222, 10, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 1, dialer.calls)
	assert.Equal(t, knownhosts.Line([]string{"1.2.3.4:2222"}, key), line)
	assert.Contains(t, line, "[1.2.3.4]:2222")
	assert.Contains(t, line, key.Type())
}

func TestScan_DefaultPortLineHasNoBrackets(t *testing.T) {
	key := testHostKey(t)

	dialer := &mockDialer{
		dialFunc: func(network, addr string, config *ssh.ClientConfig) error {
			return config.HostKeyCallback(addr, nil, key)
		},
	}

	svc := NewWithDialer(testLogger(), dialer)
	line, err := svc.Scan(context.Background(), "1.2.3.4", 22, 10, time.Millisecond)

	require.NoError(t, err)
	assert.NotContains(t, line, "[")
	assert.Contains(t, line, "1.2.3.4")
}

func TestScan_RetriesUntilSSHDAcceptsConnections(t *testing.T) {
	key := testHostKey(t)

	dialer := &mockDialer{}
	dialer.dialFunc = func(network, addr string, config *ssh.ClientConfig) error {
		if dialer.calls < 3 {
			return errors.New("connection refused")
		}
		return config.HostKeyCallback(addr, nil, key)
	}

	svc := NewWithDialer(testLogger(), dialer)
	line, err := svc.Scan(context.Background(), "1.2.3.4", 2222, 10, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 3, dialer.calls)
	assert.NotEmpty(t, line)
}

func TestScan_BudgetExhausted(t *testing.T) {
	dialer := &mockDialer{
		dialFunc: func(network, addr string, config *ssh.ClientConfig) error {
			return errors.New("connection refused")
		},
	}

	svc := NewWithDialer(testLogger(), dialer)
	_, err := svc.Scan(context.Background(), "1.2.3.4", 2222, 4, time.Millisecond)

	var scanErr *models.HostKeyScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, 4, dialer.calls)
	assert.Equal(t, "1.2.3.4", scanErr.Host)
	assert.Equal(t, 2222, scanErr.Port)
	assert.Equal(t, 4, scanErr.Attempts)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestScan_ContextCancelled(t *testing.T) {
	dialer := &mockDialer{
		dialFunc: func(network, addr string, config *ssh.ClientConfig) error {
			return errors.New("connection refused")
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewWithDialer(testLogger(), dialer)
	_, err := svc.Scan(ctx, "1.2.3.4", 2222, 10, time.Hour)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, dialer.calls)
}
