package client

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

// SecretEnvKey overrides the secret stored in the client config file.
const SecretEnvKey = "CRON_SECRET"

// Config holds the information needed to connect to an exam-pipeline API server.
type Config struct {
	Service Service `json:"service"`
}

// Service contains information how to connect to and authenticate against the API server.
type Service struct {
	// Server is the URL of the API server (the part before /api/v1/...).
	Server string `json:"server"`
	// Secret is sent as a bearer token. Admin session tokens work for the run and
	// status endpoints as well.
	Secret string `json:"secret,omitempty"`
}

func NewDefault() *Config {
	return &Config{
		Service: Service{
			Server: "http://localhost:3443",
			Secret: os.Getenv(SecretEnvKey),
		},
	}
}

// DefaultClientConfigPath returns the default path to the client config file.
func DefaultClientConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".exam-pipeline", "client.yaml")
}

func ParseConfigFile(filename string) (*Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	config := NewDefault()
	if err := yaml.Unmarshal(contents, config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if secret := os.Getenv(SecretEnvKey); secret != "" {
		config.Service.Secret = secret
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Persist writes the config to filename, creating its directory when needed.
func (c *Config) Persist(filename string) error {
	contents, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.WriteFile(filename, contents, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := errors.Join(validateService(c.Service)...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func validateService(service Service) []error {
	validationErrors := make([]error, 0)
	if len(service.Server) == 0 {
		validationErrors = append(validationErrors, fmt.Errorf("no server found"))
	} else {
		u, err := url.Parse(service.Server)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Errorf("invalid server format %q: %w", service.Server, err))
		}
		if err == nil && len(u.Hostname()) == 0 {
			validationErrors = append(validationErrors, fmt.Errorf("invalid server format %q: no hostname", service.Server))
		}
	}
	return validationErrors
}
