package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opensdd/sprintwatch/core/sprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
jira_base_url: "https://example.atlassian.net/"
email: "lead@example.com"
api_token: "secret"
project_key: "PROJ"
board_id: 123
recent_days: 3
engineers:
  - "alice@example.com"
  - "Bob Smith"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func configErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	out := map[string]string{}
	var joined interface{ Unwrap() []error }
	errs := []error{err}
	if errors.As(err, &joined) {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		var ce *ConfigurationError
		require.ErrorAs(t, e, &ce)
		out[ce.Field] = ce.Reason
	}
	return out
}

func TestLoad_Valid(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "https://example.atlassian.net", c.JiraBaseURL)
	assert.Equal(t, sprint.Board("123"), c.Board())
	assert.Equal(t, 3, c.Days())
	assert.Equal(t, []string{"alice@example.com", "Bob Smith"}, c.Engineers)
	assert.Equal(t, 50, c.PageSize)
	assert.Equal(t, DefaultConcurrency, c.Concurrency)
	assert.Equal(t, 30*time.Second, c.HTTPTimeout)
	require.NotNil(t, c.MaxRetries)
	assert.Equal(t, 3, *c.MaxRetries)

	loc, err := c.Location()
	require.NoError(t, err)
	assert.Nil(t, loc)

	opts := c.ClientOptions()
	assert.Equal(t, "secret", opts.Token)
	assert.Equal(t, 3, opts.MaxRetries)
	assert.NotContains(t, c.String(), "secret")
}

func TestLoad_OptionalFields(t *testing.T) {
	c, err := Load(writeConfig(t, strings.Replace(validYAML, "board_id: 123", `board_id: "team-board"`, 1)+`
timezone: "Europe/Berlin"
page_size: 100
concurrency: 1
http_timeout: 5s
max_retries: 0
resolve_display_names: true
`))
	require.NoError(t, err)
	assert.Equal(t, BoardID("team-board"), c.BoardID)
	assert.Equal(t, 100, c.PageSize)
	assert.Equal(t, 1, c.Concurrency)
	assert.Equal(t, 5*time.Second, c.HTTPTimeout)
	assert.Equal(t, 0, *c.MaxRetries)
	assert.Equal(t, 0, c.ClientOptions().MaxRetries)
	assert.True(t, c.ResolveDisplayNames)
	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoad_RecentDaysZeroIsValid(t *testing.T) {
	c, err := Load(writeConfig(t, strings.Replace(validYAML, "recent_days: 3", "recent_days: 0", 1)))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Days())
}

func TestLoad_TokenFromEnv(t *testing.T) {
	t.Setenv("SPRINTWATCH_TEST_TOKEN", "from-env")
	c, err := Load(writeConfig(t, strings.Replace(validYAML, `api_token: "secret"`, "api_token_env_var: SPRINTWATCH_TEST_TOKEN", 1)))
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.APIToken)
}

func TestLoad_TokenEnvUnset(t *testing.T) {
	t.Setenv("SPRINTWATCH_TEST_TOKEN", "")
	_, err := Load(writeConfig(t, strings.Replace(validYAML, `api_token: "secret"`, "api_token_env_var: SPRINTWATCH_TEST_TOKEN", 1)))
	fields := configErrors(t, err)
	assert.Contains(t, fields["api_token"], "SPRINTWATCH_TEST_TOKEN")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		from   string
		to     string
		fields []string
	}{
		{name: "missing recent days", from: "recent_days: 3", to: "", fields: []string{"recent_days"}},
		{name: "negative recent days", from: "recent_days: 3", to: "recent_days: -1", fields: []string{"recent_days"}},
		{name: "no engineers", from: "engineers:\n  - \"alice@example.com\"\n  - \"Bob Smith\"", to: "engineers: []", fields: []string{"engineers"}},
		{name: "blank engineer", from: `  - "Bob Smith"`, to: `  - "  "`, fields: []string{"engineers[1]"}},
		{name: "duplicate engineer", from: `  - "Bob Smith"`, to: `  - "ALICE@example.com"`, fields: []string{"engineers[1]"}},
		{name: "bad url", from: `jira_base_url: "https://example.atlassian.net/"`, to: `jira_base_url: "example.atlassian.net"`, fields: []string{"jira_base_url"}},
		{name: "missing url and email", from: "jira_base_url: \"https://example.atlassian.net/\"\nemail: \"lead@example.com\"", to: "", fields: []string{"jira_base_url", "email"}},
		{name: "missing token", from: `api_token: "secret"`, to: "", fields: []string{"api_token"}},
		{name: "missing project and board", from: "project_key: \"PROJ\"\nboard_id: 123", to: "", fields: []string{"project_key", "board_id"}},
		{name: "page size too big", from: "recent_days: 3", to: "recent_days: 3\npage_size: 101", fields: []string{"page_size"}},
		{name: "negative concurrency", from: "recent_days: 3", to: "recent_days: 3\nconcurrency: -2", fields: []string{"concurrency"}},
		{name: "negative retries", from: "recent_days: 3", to: "recent_days: 3\nmax_retries: -1", fields: []string{"max_retries"}},
		{name: "unknown timezone", from: "recent_days: 3", to: "recent_days: 3\ntimezone: Mars/Olympus", fields: []string{"timezone"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, strings.Replace(validYAML, tt.from, tt.to, 1)))
			fields := configErrors(t, err)
			for _, f := range tt.fields {
				assert.Contains(t, fields, f)
			}
			assert.Len(t, fields, len(tt.fields))
		})
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, validYAML+"sprint_name: foo\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sprint_name")
}

func TestLoad_Empty(t *testing.T) {
	_, err := Load(writeConfig(t, ""))
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "file", ce.Field)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestBoardID_RejectsSequence(t *testing.T) {
	_, err := Parse([]byte(strings.Replace(validYAML, "board_id: 123", "board_id: [1, 2]", 1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "board_id must be a number or a string")
}
