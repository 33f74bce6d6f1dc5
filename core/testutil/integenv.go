// Package testutil provides helpers for tests that talk to a real Jira site.
package testutil

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// EnvFileVar names a variable that overrides the default env file location.
const EnvFileVar = "SPRINTWATCH_INTEG_ENV_FILE"

var (
	integEnvOnce sync.Once
	integEnvVars map[string]string
)

// EnvFilePath returns the file integration settings are read from.
func EnvFilePath() string {
	if p := os.Getenv(EnvFileVar); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "sprintwatch", ".env.integ-test")
}

func loadIntegEnvFile() map[string]string {
	integEnvOnce.Do(func() {
		integEnvVars = map[string]string{}
		path := EnvFilePath()
		if path == "" {
			return
		}
		f, err := os.Open(path)
		if err != nil {
			return
		}
		defer func() { _ = f.Close() }()
		integEnvVars = parseEnv(f)
	})
	return integEnvVars
}

// parseEnv reads KEY=VALUE lines. Blank lines, comments and an optional
// "export " prefix are accepted; matching surrounding quotes are stripped.
func parseEnv(r io.Reader) map[string]string {
	vars := map[string]string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
			v = v[1 : len(v)-1]
		}
		vars[strings.TrimSpace(k)] = v
	}
	return vars
}

// IntegEnv returns the value of key from the environment, falling back to
// the integration env file (see EnvFilePath) if the env var is not set.
func IntegEnv(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return loadIntegEnvFile()[key]
}
