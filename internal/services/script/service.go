// Package script builds the setup and cleanup scripts for a pod connection.
// The builder produces an ordered list of typed actions so ordering and
// parameters stay testable; a separate renderer turns them into the literal
// shell text handed back to the caller. Nothing here executes anything.
package script

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tnrlabs/thunder-runner/internal/models"
	"github.com/tnrlabs/thunder-runner/internal/sshconfig"
)

// RunnerHostEnv is the environment variable the external build tool reads
// as its network endpoint.
const RunnerHostEnv = "_EXPERIMENTAL_DAGGER_RUNNER_HOST"

// ActionKind identifies a setup or cleanup step.
type ActionKind string

const (
	KindEnsureDir            ActionKind = "ensure-dir"
	KindWriteKey             ActionKind = "write-key"
	KindAddAgentKey          ActionKind = "add-agent-key"
	KindAppendKnownHosts     ActionKind = "append-known-hosts"
	KindAppendSSHConfig      ActionKind = "append-ssh-config"
	KindExportEnv            ActionKind = "export-env"
	KindRemoveFile           ActionKind = "remove-file"
	KindRemoveKnownHost      ActionKind = "remove-known-host"
	KindRemoveSSHConfigBlock ActionKind = "remove-ssh-config-block"
)

// Action is one idempotent or guarded shell step. Every setup action has a
// corresponding inverse among the cleanup kinds.
type Action struct {
	Kind    ActionKind
	Path    string // target file or directory
	Mode    string // octal file mode for ensure-dir and write-key
	Content string // key material, known_hosts line, or config block
	Host    string // for known_hosts and ssh_config edits
	Name    string // environment variable name
	Value   string // environment variable value
}

// Service defines the interface for script building.
type Service interface {
	BuildSetup(profile models.ConnectionProfile, privateKey, knownHostsLine, sshDir string) []Action
	BuildCleanup(podID, host, keyDir, sshDir string) []Action
	Render(actions []Action) string
}

// Impl implements the script Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new script builder.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// KeyPath returns the private key location for a pod id under keyDir.
func KeyPath(keyDir, podID string) string {
	return filepath.Join(keyDir, podID+"_key")
}

// BuildSetup produces the setup actions for a running pod, in trust-
// establishment order: key directory, key file, agent registration, ssh
// directory, known_hosts entry (when a scan produced one), ssh_config block,
// and finally the runner endpoint export. When no known_hosts line exists
// the config block disables strict host key checking instead.
func (s *Impl) BuildSetup(profile models.ConnectionProfile, privateKey, knownHostsLine, sshDir string) []Action {
	var actions []Action

	if privateKey != "" {
		actions = append(actions,
			Action{Kind: KindEnsureDir, Path: filepath.Dir(profile.KeyPath), Mode: "700"},
			Action{Kind: KindWriteKey, Path: profile.KeyPath, Mode: "600", Content: privateKey},
			Action{Kind: KindAddAgentKey, Path: profile.KeyPath},
		)
	}

	actions = append(actions, Action{Kind: KindEnsureDir, Path: sshDir, Mode: "700"})

	if knownHostsLine != "" {
		actions = append(actions, Action{
			Kind:    KindAppendKnownHosts,
			Path:    filepath.Join(sshDir, "known_hosts"),
			Mode:    "600",
			Content: knownHostsLine,
			Host:    profile.Host,
		})
	}

	block := sshconfig.FormatHostBlock(profile, knownHostsLine == "")
	actions = append(actions, Action{
		Kind:    KindAppendSSHConfig,
		Path:    filepath.Join(sshDir, "config"),
		Mode:    "600",
		Content: block,
		Host:    profile.Host,
	})

	actions = append(actions, Action{
		Kind:  KindExportEnv,
		Name:  RunnerHostEnv,
		Value: profile.Endpoint(),
	})

	s.logger.Debug().
		Str("instance_id", profile.PodID).
		Int("actions", len(actions)).
		Msg("setup actions built")

	return actions
}

// BuildCleanup produces the inverse of BuildSetup. It is safe to render and
// run even when setup partially failed: every removal is existence-guarded.
// With no host (best-effort status lookup failed) only the key file is
// removed, since no SSH state was recorded under a known host name.
func (s *Impl) BuildCleanup(podID, host, keyDir, sshDir string) []Action {
	actions := []Action{
		{Kind: KindRemoveFile, Path: KeyPath(keyDir, podID)},
	}

	if host != "" {
		actions = append(actions,
			Action{Kind: KindRemoveKnownHost, Path: filepath.Join(sshDir, "known_hosts"), Host: host},
			Action{Kind: KindRemoveSSHConfigBlock, Path: filepath.Join(sshDir, "config"), Host: host},
		)
	}

	s.logger.Debug().
		Str("instance_id", podID).
		Int("actions", len(actions)).
		Msg("cleanup actions built")

	return actions
}

// Render turns actions into literal shell statements for the caller's own
// shell. Statements run top to bottom; each is idempotent or guarded so the
// whole block can be replayed.
func (s *Impl) Render(actions []Action) string {
	var b strings.Builder

	for _, a := range actions {
		switch a.Kind {
		case KindEnsureDir:
			fmt.Fprintf(&b, "mkdir -p %s && chmod %s %s\n", quote(a.Path), a.Mode, quote(a.Path))
		case KindWriteKey:
			fmt.Fprintf(&b, "cat > %s <<'THUNDER_EOF'\n%s\nTHUNDER_EOF\n", quote(a.Path), strings.TrimRight(a.Content, "\n"))
			fmt.Fprintf(&b, "chmod %s %s\n", a.Mode, quote(a.Path))
		case KindAddAgentKey:
			fmt.Fprintf(&b, "ssh-add %s\n", quote(a.Path))
		case KindAppendKnownHosts:
			fmt.Fprintf(&b, "touch %s && chmod %s %s\n", quote(a.Path), a.Mode, quote(a.Path))
			fmt.Fprintf(&b, "grep -qF %s %s || printf '%%s\\n' %s >> %s\n",
				quote(a.Content), quote(a.Path), quote(a.Content), quote(a.Path))
		case KindAppendSSHConfig:
			fmt.Fprintf(&b, "touch %s && chmod %s %s\n", quote(a.Path), a.Mode, quote(a.Path))
			fmt.Fprintf(&b, "grep -qxF %s %s || cat >> %s <<'THUNDER_EOF'\n\n%sTHUNDER_EOF\n",
				quote("Host "+a.Host), quote(a.Path), quote(a.Path), a.Content)
		case KindExportEnv:
			fmt.Fprintf(&b, "export %s=%s\n", a.Name, quote(a.Value))
		case KindRemoveFile:
			fmt.Fprintf(&b, "rm -f %s\n", quote(a.Path))
		case KindRemoveKnownHost:
			// known_hosts may hold the entry as host or [host]:port. Match on
			// the host field, not the whole line, so an entry for a host with
			// this one as a prefix survives; rewrite through a temp file and
			// replace atomically.
			fmt.Fprintf(&b, "if [ -f %s ]; then tmp=$(mktemp) && awk -v host=%s '$1 == host || index($1, \"[\" host \"]:\") == 1 {next} {print}' %s > \"$tmp\" && mv \"$tmp\" %s; fi\n",
				quote(a.Path), quote(a.Host), quote(a.Path), quote(a.Path))
		case KindRemoveSSHConfigBlock:
			fmt.Fprintf(&b, "if [ -f %s ]; then tmp=$(mktemp) && awk -v host=%s '$1 == \"Host\" && $2 == host {skip=1; next} skip && NF == 0 {skip=0; next} !skip' %s > \"$tmp\" && mv \"$tmp\" %s; fi\n",
				quote(a.Path), quote(a.Host), quote(a.Path), quote(a.Path))
		}
	}

	return b.String()
}

// quote single-quotes a shell word. Key material and known_hosts lines never
// contain single quotes, but paths under $HOME might contain spaces.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
