// Package api provides the Thunder pod-management API client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tnrlabs/thunder-runner/internal/models"
)

// Service defines the interface for pod API operations. Each call is a
// single outbound request; retries belong to the poller, not this layer.
type Service interface {
	Create(ctx context.Context, cfg models.RunnerConfig, gpuType string) (*models.Pod, error)
	GetStatus(ctx context.Context, cfg models.RunnerConfig, id string) (*models.Pod, error)
	List(ctx context.Context, cfg models.RunnerConfig) ([]models.Pod, error)
	Delete(ctx context.Context, cfg models.RunnerConfig, id string) error
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the Service interface.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
}

// New creates a new API client.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// NewWithClient creates a new API client with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient) *Impl {
	return &Impl{
		httpClient: httpClient,
		logger:     logger,
	}
}

// createResponse is the body of POST /pods.
type createResponse struct {
	InstanceID string `json:"instance_id"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	PrivateKey string `json:"private_key"`
	Scheme     string `json:"scheme"`
}

// statusResponse is the body of GET /pods/{id}.
type statusResponse struct {
	Status string `json:"status"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
}

// listResponse is the body of GET /pods.
type listResponse struct {
	Pods []struct {
		InstanceID string `json:"instance_id"`
		Status     string `json:"status"`
		Host       string `json:"host"`
		Port       int    `json:"port"`
	} `json:"pods"`
}

// Create provisions a new pod, optionally pinned to a GPU type.
func (s *Impl) Create(ctx context.Context, cfg models.RunnerConfig, gpuType string) (*models.Pod, error) {
	if err := checkToken(cfg); err != nil {
		return nil, err
	}

	url := cfg.API.Endpoint + "/pods"
	if gpuType != "" {
		url = fmt.Sprintf("%s/pods/%s/1", cfg.API.Endpoint, gpuType)
	}

	s.logger.Info().Str("gpu_type", gpuType).Msg("creating pod")

	body, err := s.do(ctx, cfg, http.MethodPost, url, []byte("{}"))
	if err != nil {
		return nil, wrapOp(err, "create", "")
	}

	var resp createResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &models.APIError{Op: "create", Reason: "unparseable response", Err: err}
	}
	if resp.InstanceID == "" {
		return nil, &models.APIError{Op: "create", Reason: "response missing instance_id"}
	}

	s.logger.Info().
		Str("instance_id", resp.InstanceID).
		Str("host", resp.Host).
		Int("port", resp.Port).
		Msg("pod created")

	return &models.Pod{
		ID:         resp.InstanceID,
		Status:     models.PodStatusPending,
		Host:       resp.Host,
		Port:       resp.Port,
		Scheme:     models.ConnectionScheme(resp.Scheme),
		PrivateKey: resp.PrivateKey,
	}, nil
}

// GetStatus fetches the current status and connection details of a pod.
// An absent status field degrades to unknown rather than failing, to
// tolerate transient API inconsistency.
func (s *Impl) GetStatus(ctx context.Context, cfg models.RunnerConfig, id string) (*models.Pod, error) {
	if err := checkToken(cfg); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, &models.ValidationError{Field: "instance id", Reason: "must not be empty"}
	}

	body, err := s.do(ctx, cfg, http.MethodGet, cfg.API.Endpoint+"/pods/"+id, nil)
	if err != nil {
		return nil, wrapOp(err, "status", id)
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &models.APIError{Op: "status", PodID: id, Reason: "unparseable response", Err: err}
	}

	return &models.Pod{
		ID:     id,
		Status: models.ParsePodStatus(resp.Status),
		Host:   resp.Host,
		Port:   resp.Port,
	}, nil
}

// List returns all pods visible to the token.
func (s *Impl) List(ctx context.Context, cfg models.RunnerConfig) ([]models.Pod, error) {
	if err := checkToken(cfg); err != nil {
		return nil, err
	}

	body, err := s.do(ctx, cfg, http.MethodGet, cfg.API.Endpoint+"/pods", nil)
	if err != nil {
		return nil, wrapOp(err, "list", "")
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &models.APIError{Op: "list", Reason: "unparseable response", Err: err}
	}

	pods := make([]models.Pod, len(resp.Pods))
	for i, p := range resp.Pods {
		pods[i] = models.Pod{
			ID:     p.InstanceID,
			Status: models.ParsePodStatus(p.Status),
			Host:   p.Host,
			Port:   p.Port,
		}
	}
	return pods, nil
}

// Delete removes a pod. A non-empty response body from an otherwise
// successful delete is surfaced as an error, not retried.
func (s *Impl) Delete(ctx context.Context, cfg models.RunnerConfig, id string) error {
	if err := checkToken(cfg); err != nil {
		return err
	}
	if id == "" {
		return &models.ValidationError{Field: "instance id", Reason: "must not be empty"}
	}

	s.logger.Info().Str("instance_id", id).Msg("deleting pod")

	body, err := s.do(ctx, cfg, http.MethodDelete, cfg.API.Endpoint+"/pods/"+id, nil)
	if err != nil {
		return wrapOp(err, "delete", id)
	}
	if len(bytes.TrimSpace(body)) > 0 {
		return &models.APIError{
			Op:     "delete",
			PodID:  id,
			Reason: fmt.Sprintf("unexpected response body: %s", strings.TrimSpace(string(body))),
		}
	}

	s.logger.Info().Str("instance_id", id).Msg("pod deleted")
	return nil
}

// do issues a single bearer-authenticated request and returns the body.
func (s *Impl) do(ctx context.Context, cfg models.RunnerConfig, method, url string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.API.Token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &models.AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

func checkToken(cfg models.RunnerConfig) error {
	if cfg.API.Token == "" {
		return &models.ValidationError{Field: "token", Reason: "must not be empty"}
	}
	return nil
}

// wrapOp attaches operation context to transport-level failures while
// letting the typed errors pass through unchanged.
func wrapOp(err error, op, id string) error {
	switch err.(type) {
	case *models.AuthError, *models.ValidationError:
		return err
	}
	return &models.APIError{Op: op, PodID: id, Reason: "request failed", Err: err}
}
