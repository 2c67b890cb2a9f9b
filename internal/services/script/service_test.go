package script

import (
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tnrlabs/thunder-runner/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testProfile() models.ConnectionProfile {
	return models.ConnectionProfile{
		PodID:   "p1",
		Host:    "1.2.3.4",
		Port:    2222,
		User:    "root",
		KeyPath: "/home/u/.thunder/keys/p1_key",
	}
}

const testKnownHostsLine = "[1.2.3.4]:2222 ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIFAKE"

func TestBuildSetup_ActionOrder(t *testing.T) {
	svc := New(testLogger())

	actions := svc.BuildSetup(testProfile(), "KEY", testKnownHostsLine, "/home/u/.ssh")

	kinds := make([]ActionKind, len(actions))
	for i, a := range actions {
		kinds[i] = a.Kind
	}
	assert.Equal(t, []ActionKind{
		KindEnsureDir,
		KindWriteKey,
		KindAddAgentKey,
		KindEnsureDir,
		KindAppendKnownHosts,
		KindAppendSSHConfig,
		KindExportEnv,
	}, kinds)
}

func TestBuildSetup_KeyActions(t *testing.T) {
	svc := New(testLogger())

	actions := svc.BuildSetup(testProfile(), "KEY", testKnownHostsLine, "/home/u/.ssh")

	assert.Equal(t, "/home/u/.thunder/keys", actions[0].Path)
	assert.Equal(t, "700", actions[0].Mode)
	assert.Equal(t, "/home/u/.thunder/keys/p1_key", actions[1].Path)
	assert.Equal(t, "600", actions[1].Mode)
	assert.Equal(t, "KEY", actions[1].Content)
	assert.Equal(t, "/home/u/.thunder/keys/p1_key", actions[2].Path)
}

func TestBuildSetup_NoPrivateKeySkipsKeyActions(t *testing.T) {
	svc := New(testLogger())

	actions := svc.BuildSetup(testProfile(), "", testKnownHostsLine, "/home/u/.ssh")

	for _, a := range actions {
		assert.NotEqual(t, KindWriteKey, a.Kind)
		assert.NotEqual(t, KindAddAgentKey, a.Kind)
	}
}

func TestBuildSetup_NoScanLineDisablesStrictChecking(t *testing.T) {
	svc := New(testLogger())

	actions := svc.BuildSetup(testProfile(), "KEY", "", "/home/u/.ssh")

	var configBlock string
	for _, a := range actions {
		assert.NotEqual(t, KindAppendKnownHosts, a.Kind)
		if a.Kind == KindAppendSSHConfig {
			configBlock = a.Content
		}
	}
	require.NotEmpty(t, configBlock)
	assert.Contains(t, configBlock, "StrictHostKeyChecking no")
}

func TestBuildSetup_ScanLineKeepsStrictChecking(t *testing.T) {
	svc := New(testLogger())

	actions := svc.BuildSetup(testProfile(), "KEY", testKnownHostsLine, "/home/u/.ssh")

	for _, a := range actions {
		if a.Kind == KindAppendSSHConfig {
			assert.NotContains(t, a.Content, "StrictHostKeyChecking")
		}
	}
}

func TestRenderSetup_Scenario(t *testing.T) {
	svc := New(testLogger())

	actions := svc.BuildSetup(testProfile(), "KEY", testKnownHostsLine, "/home/u/.ssh")
	out := svc.Render(actions)

	assert.Contains(t, out, "mkdir -p '/home/u/.thunder/keys' && chmod 700 '/home/u/.thunder/keys'")
	assert.Contains(t, out, "cat > '/home/u/.thunder/keys/p1_key' <<'THUNDER_EOF'\nKEY\nTHUNDER_EOF")
	assert.Contains(t, out, "chmod 600 '/home/u/.thunder/keys/p1_key'")
	assert.Contains(t, out, "ssh-add '/home/u/.thunder/keys/p1_key'")
	assert.Contains(t, out, "[1.2.3.4]:2222")
	assert.Contains(t, out, "Host 1.2.3.4")
	assert.Contains(t, out, "    Port 2222")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, "export _EXPERIMENTAL_DAGGER_RUNNER_HOST='1.2.3.4:2222'", lines[len(lines)-1])
}

func TestRenderSetup_SSHScheme(t *testing.T) {
	svc := New(testLogger())

	p := testProfile()
	p.Scheme = models.SchemeSSH
	out := svc.Render(svc.BuildSetup(p, "KEY", testKnownHostsLine, "/home/u/.ssh"))

	assert.Contains(t, out, "export _EXPERIMENTAL_DAGGER_RUNNER_HOST='ssh://root@1.2.3.4:2222'\n")
}

func TestRenderSetup_TCPScheme(t *testing.T) {
	svc := New(testLogger())

	p := testProfile()
	p.Scheme = models.SchemeTCP
	out := svc.Render(svc.BuildSetup(p, "KEY", testKnownHostsLine, "/home/u/.ssh"))

	assert.Contains(t, out, "export _EXPERIMENTAL_DAGGER_RUNNER_HOST='tcp://1.2.3.4:2222'\n")
}

func TestRenderSetup_AppendsAreGuarded(t *testing.T) {
	svc := New(testLogger())

	out := svc.Render(svc.BuildSetup(testProfile(), "KEY", testKnownHostsLine, "/home/u/.ssh"))

	// Re-running the script must not duplicate entries.
	assert.Contains(t, out, "grep -qF '"+testKnownHostsLine+"' '/home/u/.ssh/known_hosts' ||")
	// -x keeps a lookalike header (Host 1.2.3.4 has regex metacharacters)
	// from suppressing the append.
	assert.Contains(t, out, "grep -qxF 'Host 1.2.3.4' '/home/u/.ssh/config' ||")
}

func TestBuildCleanup_WithHost(t *testing.T) {
	svc := New(testLogger())

	actions := svc.BuildCleanup("p1", "1.2.3.4", "/home/u/.thunder/keys", "/home/u/.ssh")

	require.Len(t, actions, 3)
	assert.Equal(t, KindRemoveFile, actions[0].Kind)
	assert.Equal(t, "/home/u/.thunder/keys/p1_key", actions[0].Path)
	assert.Equal(t, KindRemoveKnownHost, actions[1].Kind)
	assert.Equal(t, "1.2.3.4", actions[1].Host)
	assert.Equal(t, KindRemoveSSHConfigBlock, actions[2].Kind)
}

func TestBuildCleanup_NoHostRemovesKeyOnly(t *testing.T) {
	svc := New(testLogger())

	actions := svc.BuildCleanup("p1", "", "/home/u/.thunder/keys", "/home/u/.ssh")

	require.Len(t, actions, 1)
	assert.Equal(t, KindRemoveFile, actions[0].Kind)

	out := svc.Render(actions)
	assert.Equal(t, "rm -f '/home/u/.thunder/keys/p1_key'\n", out)
}

func TestRenderCleanup_AtomicReplace(t *testing.T) {
	svc := New(testLogger())

	out := svc.Render(svc.BuildCleanup("p1", "1.2.3.4", "/home/u/.thunder/keys", "/home/u/.ssh"))

	assert.Contains(t, out, "rm -f '/home/u/.thunder/keys/p1_key'")
	// Config and known_hosts edits go through a temp file, never in-place
	// truncation, and are guarded so cleanup survives a partial setup.
	assert.Contains(t, out, "if [ -f '/home/u/.ssh/known_hosts' ]; then tmp=$(mktemp)")
	assert.Contains(t, out, "if [ -f '/home/u/.ssh/config' ]; then tmp=$(mktemp)")
	// Both removals match on the host field, never on a line substring.
	assert.Contains(t, out, `awk -v host='1.2.3.4' '$1 == host || index($1, "[" host "]:") == 1 {next} {print}' '/home/u/.ssh/known_hosts'`)
	assert.Contains(t, out, `mv "$tmp" '/home/u/.ssh/known_hosts'`)
	assert.Contains(t, out, `mv "$tmp" '/home/u/.ssh/config'`)
}

func TestKeyPath(t *testing.T) {
	assert.Equal(t, "/d/p1_key", KeyPath("/d", "p1"))
}
