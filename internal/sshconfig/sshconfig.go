// Package sshconfig edits OpenSSH client configuration host blocks. A block
// is a "Host <name>" header line followed by indented option lines and is
// terminated by a blank line or end of file. Everything here is pure text
// manipulation so the edit semantics are testable without touching the
// filesystem.
package sshconfig

import (
	"fmt"
	"strings"

	"github.com/tnrlabs/thunder-runner/internal/models"
)

// FormatHostBlock renders the host block for a connection profile. Strict
// host key checking stays enabled unless the caller explicitly disables it,
// which is only legitimate when no known_hosts entry was established.
func FormatHostBlock(p models.ConnectionProfile, disableStrictChecking bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Host %s\n", p.Host)
	if p.KeyPath != "" {
		fmt.Fprintf(&b, "    IdentityFile %s\n", p.KeyPath)
	}
	if p.Port != 0 && p.Port != 22 {
		fmt.Fprintf(&b, "    Port %d\n", p.Port)
		fmt.Fprintf(&b, "    User %s\n", p.User)
	}
	if disableStrictChecking {
		b.WriteString("    StrictHostKeyChecking no\n")
		b.WriteString("    UserKnownHostsFile /dev/null\n")
	}

	return b.String()
}

// HasHostBlock reports whether content already contains a block for host.
func HasHostBlock(content, host string) bool {
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "Host" && fields[1] == host {
			return true
		}
	}
	return false
}

// AppendHostBlock appends block for host, separated from existing content by
// a blank line. Appending a host that already has a block is a no-op, so
// repeated setup never produces duplicates.
func AppendHostBlock(content, host, block string) string {
	if HasHostBlock(content, host) {
		return content
	}

	out := content
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if out != "" {
		out += "\n"
	}
	return out + block
}

// RemoveHostBlock deletes the block for host, including its terminating
// blank line, preserving every other block. Trailing blank lines are
// normalized to a single newline.
func RemoveHostBlock(content, host string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	skip := false
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "Host" && fields[1] == host {
			skip = true
			// Drop the blank separator that preceded this block.
			if n := len(out); n > 0 && strings.TrimSpace(out[n-1]) == "" {
				out = out[:n-1]
			}
			continue
		}
		if skip {
			if strings.TrimSpace(line) == "" {
				skip = false
			}
			continue
		}
		out = append(out, line)
	}

	result := strings.TrimRight(strings.Join(out, "\n"), " \t\n")
	if result == "" {
		return ""
	}
	return result + "\n"
}
