// Package runner orchestrates the pod lifecycle: deploy and destroy.
package runner

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tnrlabs/thunder-runner/internal/models"
	"github.com/tnrlabs/thunder-runner/internal/services/api"
	"github.com/tnrlabs/thunder-runner/internal/services/hostkey"
	"github.com/tnrlabs/thunder-runner/internal/services/poller"
	"github.com/tnrlabs/thunder-runner/internal/services/script"
)

const defaultSSHPort = 22

// Service defines the interface for the pod lifecycle orchestrator. Deploy
// and Destroy return literal shell text for the caller to execute in its own
// shell; nothing is executed by this process.
type Service interface {
	Deploy(ctx context.Context, cfg models.RunnerConfig) (string, error)
	Destroy(ctx context.Context, cfg models.RunnerConfig, id string) (string, error)
	List(ctx context.Context, cfg models.RunnerConfig) ([]models.Pod, error)
}

// Impl implements the runner Service interface.
type Impl struct {
	apiSvc     api.Service
	pollerSvc  poller.Service
	hostkeySvc hostkey.Service
	scriptSvc  script.Service
	logger     zerolog.Logger
}

// New creates a new runner service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		apiSvc:     api.New(logger),
		pollerSvc:  poller.New(logger),
		hostkeySvc: hostkey.New(logger),
		scriptSvc:  script.New(logger),
		logger:     logger,
	}
}

// NewWithServices creates a new runner service with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	apiSvc api.Service,
	pollerSvc poller.Service,
	hostkeySvc hostkey.Service,
	scriptSvc script.Service,
) *Impl {
	return &Impl{
		apiSvc:     apiSvc,
		pollerSvc:  pollerSvc,
		hostkeySvc: hostkeySvc,
		scriptSvc:  scriptSvc,
		logger:     logger,
	}
}

// Deploy provisions a pod, waits for it to run, and returns the setup script
// ending in the runner endpoint export.
func (s *Impl) Deploy(ctx context.Context, cfg models.RunnerConfig) (string, error) {
	if cfg.API.Token == "" {
		return "", &models.ValidationError{Field: "token", Reason: "must not be empty"}
	}

	pod, err := s.apiSvc.Create(ctx, cfg, cfg.GPU.Type)
	if err != nil {
		return "", fmt.Errorf("create failed: %w", err)
	}

	s.logger.Info().
		Str("instance_id", pod.ID).
		Int("max_attempts", cfg.Poll.MaxAttempts).
		Dur("interval", cfg.Poll.Interval).
		Msg("waiting for pod to run")

	statusFn := func(ctx context.Context, id string) (*models.Pod, error) {
		return s.apiSvc.GetStatus(ctx, cfg, id)
	}
	running, err := s.pollerSvc.WaitUntilRunning(ctx, statusFn, pod.ID, cfg.Poll.MaxAttempts, cfg.Poll.Interval)
	if err != nil {
		return "", fmt.Errorf("pod %s not ready: %w", pod.ID, err)
	}

	// Connection details reported at running time win over create-time values.
	host := pod.Host
	if running.Host != "" {
		host = running.Host
	}
	port := pod.Port
	if running.Port != 0 {
		port = running.Port
	}
	if port == 0 {
		port = defaultSSHPort
	}
	if host == "" {
		return "", &models.APIError{Op: "status", PodID: pod.ID, Reason: "running pod has no host"}
	}

	profile := models.ConnectionProfile{
		PodID:   pod.ID,
		Host:    host,
		Port:    port,
		Scheme:  pod.Scheme,
		User:    cfg.SSH.User,
		KeyPath: script.KeyPath(cfg.SSH.KeyDir, pod.ID),
	}

	// A non-standard port always needs a known_hosts entry; on the default
	// port the scan can be skipped only by explicit opt-out, which drops the
	// setup script to StrictHostKeyChecking no.
	var knownHostsLine string
	if port != defaultSSHPort || !cfg.Scan.InsecureSkipScan {
		knownHostsLine, err = s.hostkeySvc.Scan(ctx, host, port, cfg.Scan.MaxAttempts, cfg.Scan.Interval)
		if err != nil {
			return "", fmt.Errorf("deploy of pod %s: %w", pod.ID, err)
		}
	}

	actions := s.scriptSvc.BuildSetup(profile, pod.PrivateKey, knownHostsLine, cfg.SSH.Dir)
	out := s.scriptSvc.Render(actions)

	s.logger.Info().
		Str("instance_id", pod.ID).
		Str("endpoint", profile.Endpoint()).
		Msg("deploy completed")

	return out, nil
}

// Destroy deletes a pod and returns the cleanup script reversing the local
// SSH configuration changes. The status lookup is best effort: when it fails
// or reports no host, the delete still proceeds and cleanup degrades to the
// key file removal alone.
func (s *Impl) Destroy(ctx context.Context, cfg models.RunnerConfig, id string) (string, error) {
	if cfg.API.Token == "" {
		return "", &models.ValidationError{Field: "token", Reason: "must not be empty"}
	}
	if id == "" {
		return "", &models.ValidationError{Field: "instance id", Reason: "must not be empty"}
	}

	var host string
	if pod, err := s.apiSvc.GetStatus(ctx, cfg, id); err != nil {
		s.logger.Warn().
			Err(err).
			Str("instance_id", id).
			Msg("status lookup failed; skipping SSH cleanup")
	} else {
		host = pod.Host
	}

	if err := s.apiSvc.Delete(ctx, cfg, id); err != nil {
		return "", fmt.Errorf("delete failed: %w", err)
	}

	actions := s.scriptSvc.BuildCleanup(id, host, cfg.SSH.KeyDir, cfg.SSH.Dir)
	out := s.scriptSvc.Render(actions)

	s.logger.Info().
		Str("instance_id", id).
		Bool("ssh_cleanup", host != "").
		Msg("destroy completed")

	return out, nil
}

// List returns the pods visible to the configured token.
func (s *Impl) List(ctx context.Context, cfg models.RunnerConfig) ([]models.Pod, error) {
	pods, err := s.apiSvc.List(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("list failed: %w", err)
	}
	return pods, nil
}
