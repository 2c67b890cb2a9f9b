// Package models contains the data structures used throughout thunder-runner.
package models

import "fmt"

// PodStatus represents the lifecycle status of a pod as reported by the API.
type PodStatus string

const (
	PodStatusPending PodStatus = "pending"
	PodStatusRunning PodStatus = "running"
	PodStatusError   PodStatus = "error"
	PodStatusUnknown PodStatus = "unknown"
)

// ParsePodStatus maps an API status string to a PodStatus. An absent status
// field is tolerated as unknown rather than treated as a failure.
func ParsePodStatus(s string) PodStatus {
	if s == "" {
		return PodStatusUnknown
	}
	return PodStatus(s)
}

// ConnectionScheme selects how the runner endpoint is formatted.
type ConnectionScheme string

const (
	SchemePlain ConnectionScheme = ""    // host:port
	SchemeSSH   ConnectionScheme = "ssh" // ssh://user@host:port
	SchemeTCP   ConnectionScheme = "tcp" // tcp://host:port
)

// Pod is the ephemeral local view of a remote compute instance. The remote
// API is the source of truth; nothing here is persisted between invocations.
type Pod struct {
	ID         string
	Status     PodStatus
	Host       string
	Port       int
	Scheme     ConnectionScheme
	PrivateKey string // present only in create responses
}

// ConnectionProfile holds the local SSH/network parameters derived from a
// running pod. It must never be built for a pod that is not running.
type ConnectionProfile struct {
	PodID   string
	Host    string
	Port    int
	Scheme  ConnectionScheme
	User    string
	KeyPath string
}

// Endpoint formats the runner endpoint for the external build tool.
func (p ConnectionProfile) Endpoint() string {
	hostPort := fmt.Sprintf("%s:%d", p.Host, p.Port)
	switch p.Scheme {
	case SchemeSSH:
		return fmt.Sprintf("ssh://%s@%s", p.User, hostPort)
	case SchemeTCP:
		return "tcp://" + hostPort
	default:
		return hostPort
	}
}
