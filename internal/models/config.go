package models

import "time"

// RunnerConfig holds the complete configuration for a deploy or destroy run.
// It is loaded once per invocation and passed by value into every service;
// there is no process-wide mutable configuration state.
type RunnerConfig struct {
	API  APIConfig
	GPU  GPUConfig
	Poll PollConfig
	Scan ScanConfig
	SSH  SSHConfig
}

// APIConfig holds Thunder API connection settings.
type APIConfig struct {
	Endpoint string // base URL, e.g. https://api.thundercompute.com
	Token    string // bearer token
}

// GPUConfig selects the GPU type requested at pod creation.
type GPUConfig struct {
	Type string // empty means provider default
}

// PollConfig bounds the readiness poll. Fixed interval, no backoff.
type PollConfig struct {
	MaxAttempts int
	Interval    time.Duration
}

// ScanConfig bounds the host-key scan performed after a pod reports running.
type ScanConfig struct {
	MaxAttempts int
	Interval    time.Duration
	// InsecureSkipScan disables the scan for default-port pods; the emitted
	// ssh_config block then carries StrictHostKeyChecking no. Pods on a
	// non-standard port are always scanned.
	InsecureSkipScan bool
}

// SSHConfig holds local SSH material locations.
type SSHConfig struct {
	KeyDir string // private keys, one file per pod id
	Dir    string // the user's ~/.ssh
	User   string // remote login user
}
