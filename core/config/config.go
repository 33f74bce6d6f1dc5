// Package config loads and validates the sprintwatch YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opensdd/sprintwatch/core/jira"
	"github.com/opensdd/sprintwatch/core/search"
	"github.com/opensdd/sprintwatch/core/sprint"
	"gopkg.in/yaml.v3"
)

const DefaultConcurrency = 4

// Config is the validated run configuration. Secrets never leave it except
// through jira.Options.
type Config struct {
	JiraBaseURL         string        `yaml:"jira_base_url"`
	Email               string        `yaml:"email"`
	APIToken            string        `yaml:"api_token"`
	APITokenEnvVar      string        `yaml:"api_token_env_var"`
	ProjectKey          string        `yaml:"project_key"`
	BoardID             BoardID       `yaml:"board_id"`
	RecentDays          *int          `yaml:"recent_days"`
	Engineers           []string      `yaml:"engineers"`
	Timezone            string        `yaml:"timezone"`
	PageSize            int           `yaml:"page_size"`
	Concurrency         int           `yaml:"concurrency"`
	HTTPTimeout         time.Duration `yaml:"http_timeout"`
	MaxRetries          *int          `yaml:"max_retries"`
	ResolveDisplayNames bool          `yaml:"resolve_display_names"`
}

// BoardID accepts both numeric and string YAML scalars.
type BoardID string

func (b *BoardID) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: board_id must be a number or a string", n.Line)
	}
	*b = BoardID(strings.TrimSpace(n.Value))
	return nil
}

// ConfigurationError describes one invalid or missing field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Load reads, decodes and validates the file at path. Unknown keys are
// rejected.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes and validates YAML content.
func Parse(content []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	c := &Config{}
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ConfigurationError{Field: "file", Reason: "is empty"}
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	c.JiraBaseURL = strings.TrimRight(strings.TrimSpace(c.JiraBaseURL), "/")
	c.Email = strings.TrimSpace(c.Email)
	c.ProjectKey = strings.TrimSpace(c.ProjectKey)
	c.Timezone = strings.TrimSpace(c.Timezone)
	if c.APIToken == "" && c.APITokenEnvVar != "" {
		c.APIToken = os.Getenv(c.APITokenEnvVar)
	}
	if c.PageSize == 0 {
		c.PageSize = search.DefaultPageSize
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = jira.DefaultTimeout
	}
	if c.MaxRetries == nil {
		n := jira.DefaultMaxRetries
		c.MaxRetries = &n
	}
}

// Validate reports every problem at once, joined with errors.Join.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, reason string) {
		errs = append(errs, &ConfigurationError{Field: field, Reason: reason})
	}

	if c.JiraBaseURL == "" {
		add("jira_base_url", "is required")
	} else if u, err := url.Parse(c.JiraBaseURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		add("jira_base_url", "must be an absolute http(s) URL")
	}
	if c.Email == "" {
		add("email", "is required")
	}
	if c.APIToken == "" {
		if c.APITokenEnvVar != "" {
			add("api_token", fmt.Sprintf("is empty and environment variable %s is not set", c.APITokenEnvVar))
		} else {
			add("api_token", "is required (or set api_token_env_var)")
		}
	}
	if c.ProjectKey == "" {
		add("project_key", "is required")
	}
	if c.BoardID == "" {
		add("board_id", "is required")
	}
	if c.RecentDays == nil {
		add("recent_days", "is required")
	} else if *c.RecentDays < 0 {
		add("recent_days", "must be zero or greater, got "+strconv.Itoa(*c.RecentDays))
	}
	if len(c.Engineers) == 0 {
		add("engineers", "must list at least one engineer")
	}
	seen := make(map[string]bool, len(c.Engineers))
	for i, e := range c.Engineers {
		key := strings.TrimSpace(e)
		if key == "" {
			add(fmt.Sprintf("engineers[%d]", i), "is blank")
			continue
		}
		if seen[strings.ToLower(key)] {
			add(fmt.Sprintf("engineers[%d]", i), fmt.Sprintf("duplicates %q", key))
		}
		seen[strings.ToLower(key)] = true
		c.Engineers[i] = key
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			add("timezone", fmt.Sprintf("%q is not a known IANA zone", c.Timezone))
		}
	}
	if c.PageSize < 1 || c.PageSize > search.MaxPageSize {
		add("page_size", fmt.Sprintf("must be between 1 and %d", search.MaxPageSize))
	}
	if c.Concurrency < 1 {
		add("concurrency", "must be at least 1")
	}
	if c.HTTPTimeout < 0 {
		add("http_timeout", "cannot be negative")
	}
	if c.MaxRetries != nil && *c.MaxRetries < 0 {
		add("max_retries", "cannot be negative")
	}
	return errors.Join(errs...)
}

// Days returns the validated recent_days value.
func (c *Config) Days() int {
	if c.RecentDays == nil {
		return 0
	}
	return *c.RecentDays
}

// Board returns the board id as the sprint locator expects it.
func (c *Config) Board() sprint.Board { return sprint.Board(c.BoardID) }

// Location resolves the configured timezone. It returns nil when none is set.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", c.Timezone, err)
	}
	return loc, nil
}

// ClientOptions maps the configuration onto the Jira client.
func (c *Config) ClientOptions() jira.Options {
	retries := jira.DefaultMaxRetries
	if c.MaxRetries != nil {
		retries = *c.MaxRetries
	}
	return jira.Options{
		BaseURL:    c.JiraBaseURL,
		Email:      c.Email,
		Token:      c.APIToken,
		Timeout:    c.HTTPTimeout,
		MaxRetries: retries,
	}
}

// String redacts the token.
func (c *Config) String() string {
	return fmt.Sprintf("jira=%s email=%s project=%s board=%s engineers=%d recent_days=%d",
		c.JiraBaseURL, c.Email, c.ProjectKey, c.BoardID, len(c.Engineers), c.Days())
}
