// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/fmtbot/lib/sealed"
	"github.com/bureau-foundation/fmtbot/lib/trigger"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for fmtbot serve.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Webhook configures the push-event HTTP listener.
	Webhook WebhookConfig `yaml:"webhook"`

	// Trigger filters which push events start a run.
	Trigger TriggerConfig `yaml:"trigger"`

	// Repositories maps "owner/repo" to how fmtbot reaches it. Push
	// events for repositories not listed here are ignored.
	Repositories map[string]RepositoryConfig `yaml:"repositories"`

	// Credentials configures decryption of sealed token files.
	Credentials CredentialsConfig `yaml:"credentials"`

	// Pipeline is the path of the JSONC job definition applied to
	// every repository that does not name its own. Empty means the
	// built-in default (rustup stable, cargo fmt --all, git publish).
	Pipeline string `yaml:"pipeline"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths   *PathsConfig   `yaml:"paths,omitempty"`
	Webhook *WebhookConfig `yaml:"webhook,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for fmtbot data.
	Root string `yaml:"root"`

	// Workspaces is where each run's checkout is created
	// (<workspaces>/<run-id>) and removed after the run.
	Workspaces string `yaml:"workspaces"`

	// Results holds the result log and per-run output archives.
	Results string `yaml:"results"`
}

// WebhookConfig configures the push-event listener.
type WebhookConfig struct {
	// Listen is the TCP address to bind, e.g. ":8080".
	Listen string `yaml:"listen"`

	// SecretFile holds the webhook HMAC secret. May be an .age file.
	SecretFile string `yaml:"secret_file"`
}

// TriggerConfig filters push events.
type TriggerConfig struct {
	// Branches are path.Match globs ("main", "release/*"). Empty
	// accepts every branch.
	Branches []string `yaml:"branches"`

	// IgnoreSenders lists logins whose pushes never trigger a run,
	// typically fmtbot's own account.
	IgnoreSenders []string `yaml:"ignore_senders"`
}

// RepositoryConfig describes one repository fmtbot formats.
type RepositoryConfig struct {
	// CloneURL is the HTTPS URL cloned for each run. Defaults to the
	// clone URL carried by the push event.
	CloneURL string `yaml:"clone_url"`

	// TokenFile holds the token used for push or API publishing. May
	// be an .age file decrypted with Credentials.Identity.
	TokenFile string `yaml:"token_file"`

	// Pipeline overrides Config.Pipeline for this repository.
	Pipeline string `yaml:"pipeline"`

	// APIBaseURL is the GitHub API root for api publish mode.
	// Defaults to https://api.github.com.
	APIBaseURL string `yaml:"api_base_url"`
}

// CredentialsConfig configures sealed credential files.
type CredentialsConfig struct {
	// Identity is the age identity file used to decrypt .age token
	// and secret files.
	Identity string `yaml:"identity"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "fmtbot")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:       defaultRoot,
			Workspaces: "${FMTBOT_ROOT}/workspaces",
			Results:    "${FMTBOT_ROOT}/results",
		},
		Webhook: WebhookConfig{
			Listen: "127.0.0.1:8080",
		},
	}
}

// Load loads configuration from FMTBOT_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if FMTBOT_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("FMTBOT_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("FMTBOT_CONFIG environment variable not set; " +
			"set it to the path of your fmtbot.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values. The only expansion performed is ${HOME} and similar
// path variables for portability.
func LoadFile(configPath string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current
// config. Unknown keys are errors: a typo in a security-relevant key
// (secret_file) must not silently disable it.
func (c *Config) loadFile(configPath string) error {
	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("parsing %s: %w", configPath, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.Workspaces != "" {
			c.Paths.Workspaces = overrides.Paths.Workspaces
		}
		if overrides.Paths.Results != "" {
			c.Paths.Results = overrides.Paths.Results
		}
	}

	if overrides.Webhook != nil {
		if overrides.Webhook.Listen != "" {
			c.Webhook.Listen = overrides.Webhook.Listen
		}
		if overrides.Webhook.SecretFile != "" {
			c.Webhook.SecretFile = overrides.Webhook.SecretFile
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"FMTBOT_ROOT": c.Paths.Root,
		"HOME":        os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["FMTBOT_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.Workspaces = expandVars(c.Paths.Workspaces, vars)
	c.Paths.Results = expandVars(c.Paths.Results, vars)
	c.Webhook.SecretFile = expandVars(c.Webhook.SecretFile, vars)
	c.Credentials.Identity = expandVars(c.Credentials.Identity, vars)
	c.Pipeline = expandVars(c.Pipeline, vars)
	for name, repository := range c.Repositories {
		repository.TokenFile = expandVars(repository.TokenFile, vars)
		repository.Pipeline = expandVars(repository.Pipeline, vars)
		c.Repositories[name] = repository
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Workspaces == "" {
		errs = append(errs, fmt.Errorf("paths.workspaces is required"))
	}
	if c.Webhook.Listen == "" {
		errs = append(errs, fmt.Errorf("webhook.listen is required"))
	}
	if c.Environment == Production && c.Webhook.SecretFile == "" {
		errs = append(errs, fmt.Errorf("webhook.secret_file is required in production"))
	}

	if err := c.TriggerFilter().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("trigger.branches: %w", err))
	}

	if len(c.Repositories) == 0 {
		errs = append(errs, fmt.Errorf("repositories: at least one repository is required"))
	}
	for _, name := range c.RepositoryNames() {
		repository := c.Repositories[name]
		owner, repo, ok := strings.Cut(name, "/")
		if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
			errs = append(errs, fmt.Errorf("repositories: %q is not in owner/repo form", name))
		}
		if repository.CloneURL != "" && !strings.HasPrefix(repository.CloneURL, "https://") &&
			!strings.HasPrefix(repository.CloneURL, "file://") && !filepath.IsAbs(repository.CloneURL) {
			errs = append(errs, fmt.Errorf("repositories.%s.clone_url must be https://, file:// or an absolute path", name))
		}
		if c.Environment == Production && repository.TokenFile != "" && !sealed.IsSealed(repository.TokenFile) {
			errs = append(errs, fmt.Errorf("repositories.%s.token_file must be age-encrypted in production", name))
		}
		if sealed.IsSealed(repository.TokenFile) && c.Credentials.Identity == "" {
			errs = append(errs, fmt.Errorf("repositories.%s.token_file is sealed but credentials.identity is not set", name))
		}
	}
	if sealed.IsSealed(c.Webhook.SecretFile) && c.Credentials.Identity == "" {
		errs = append(errs, fmt.Errorf("webhook.secret_file is sealed but credentials.identity is not set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// RepositoryNames returns the configured repository names, sorted.
func (c *Config) RepositoryNames() []string {
	names := make([]string, 0, len(c.Repositories))
	for name := range c.Repositories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TriggerFilter returns the push filter for the configured
// repositories and trigger section.
func (c *Config) TriggerFilter() trigger.Filter {
	return trigger.Filter{
		Repositories:  c.RepositoryNames(),
		Branches:      c.Trigger.Branches,
		IgnoreSenders: c.Trigger.IgnoreSenders,
	}
}

// PipelineFor returns the job definition path for a repository: its
// own override, else the global one. Empty means the built-in default.
func (c *Config) PipelineFor(repository string) string {
	if override := c.Repositories[repository].Pipeline; override != "" {
		return override
	}
	return c.Pipeline
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.Workspaces,
		c.Paths.Results,
	}

	for _, directory := range paths {
		if directory == "" {
			continue
		}
		if err := os.MkdirAll(directory, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", directory, err)
		}
	}

	return nil
}
