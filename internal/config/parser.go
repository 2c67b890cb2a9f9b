// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tnrlabs/thunder-runner/internal/models"
)

const (
	defaultEndpoint     = "https://api.thundercompute.com"
	defaultPollAttempts = 30
	defaultPollInterval = 5 * time.Second
	defaultScanAttempts = 10
	defaultScanInterval = 2 * time.Second
	defaultSSHUser      = "root"

	// EndpointEnv overrides the API base URL regardless of file config.
	EndpointEnv = "THUNDER_API_ENDPOINT"
	// TokenEnv is the fallback source for the API token.
	TokenEnv = "TNR_API_TOKEN"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// Default returns the configuration used when no config file is given.
// Environment overrides still apply.
func Default() (*models.RunnerConfig, error) {
	return NewParser().parse()
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.RunnerConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.RunnerConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.RunnerConfig, error) {
	cfg := &models.RunnerConfig{}

	// API settings. THUNDER_API_ENDPOINT wins over the file value.
	cfg.API = models.APIConfig{
		Endpoint: p.expandEnv(p.v.GetString("api.endpoint")),
		Token:    p.expandEnv(p.v.GetString("api.token")),
	}
	if env := os.Getenv(EndpointEnv); env != "" {
		cfg.API.Endpoint = env
	}
	if cfg.API.Endpoint == "" {
		cfg.API.Endpoint = defaultEndpoint
	}
	cfg.API.Endpoint = strings.TrimRight(cfg.API.Endpoint, "/")
	if cfg.API.Token == "" {
		cfg.API.Token = os.Getenv(TokenEnv)
	}

	cfg.GPU = models.GPUConfig{
		Type: p.v.GetString("gpu.type"),
	}

	// Readiness poll. Fixed interval by contract; these knobs only bound it.
	cfg.Poll = models.PollConfig{
		MaxAttempts: p.v.GetInt("poll.max_attempts"),
		Interval:    p.v.GetDuration("poll.interval"),
	}
	if cfg.Poll.MaxAttempts == 0 {
		cfg.Poll.MaxAttempts = defaultPollAttempts
	}
	if cfg.Poll.Interval == 0 {
		cfg.Poll.Interval = defaultPollInterval
	}

	cfg.Scan = models.ScanConfig{
		MaxAttempts:      p.v.GetInt("scan.max_attempts"),
		Interval:         p.v.GetDuration("scan.interval"),
		InsecureSkipScan: p.v.GetBool("scan.insecure_skip_scan"),
	}
	if cfg.Scan.MaxAttempts == 0 {
		cfg.Scan.MaxAttempts = defaultScanAttempts
	}
	if cfg.Scan.Interval == 0 {
		cfg.Scan.Interval = defaultScanInterval
	}

	cfg.SSH = models.SSHConfig{
		KeyDir: p.expandEnv(p.v.GetString("ssh.key_dir")),
		Dir:    p.expandEnv(p.v.GetString("ssh.dir")),
		User:   p.v.GetString("ssh.user"),
	}
	if cfg.SSH.KeyDir == "" || cfg.SSH.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		if cfg.SSH.KeyDir == "" {
			cfg.SSH.KeyDir = filepath.Join(home, ".thunder", "keys")
		}
		if cfg.SSH.Dir == "" {
			cfg.SSH.Dir = filepath.Join(home, ".ssh")
		}
	}
	if cfg.SSH.User == "" {
		cfg.SSH.User = defaultSSHUser
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration. The API token is
// deliberately not required here: validate runs without one, and deploy and
// destroy check it themselves before any network call.
func Validate(cfg *models.RunnerConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.API.Endpoint == "" {
		return fmt.Errorf("api.endpoint is required")
	}

	if !strings.HasPrefix(cfg.API.Endpoint, "http://") && !strings.HasPrefix(cfg.API.Endpoint, "https://") {
		return fmt.Errorf("api.endpoint must be an http(s) URL")
	}

	if cfg.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("poll.max_attempts must be positive")
	}

	if cfg.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}

	if cfg.Scan.MaxAttempts <= 0 {
		return fmt.Errorf("scan.max_attempts must be positive")
	}

	if cfg.Scan.Interval <= 0 {
		return fmt.Errorf("scan.interval must be positive")
	}

	return nil
}
