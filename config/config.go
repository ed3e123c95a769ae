// Package config loads a ClusterConfig from a YAML file, the way the
// teacher's own server.Config type is loaded (a struct with yaml tags fed
// through gopkg.in/yaml.v3), generalized to the client side and layered
// with an environment-variable overlay so a deployment can override the
// checked-in file without editing it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ClusterConfig is the on-disk, YAML-loadable shape of everything
// rqlitec.ConnectionOptions needs, plus nothing that only makes sense as a
// Go value (Logger, for instance, is never represented here).
type ClusterConfig struct {
	Hosts    []string `yaml:"hosts"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`

	ConnectTimeout     time.Duration `yaml:"connect_timeout"`
	ResponseTimeout    time.Duration `yaml:"response_timeout"`
	MaxRedirects       int           `yaml:"max_redirects"`
	MaxAttemptsPerHost int           `yaml:"max_attempts_per_host"`
	ReadConsistency    string        `yaml:"read_consistency"`
	Freshness          time.Duration `yaml:"freshness"`
	UseLeaderDiscovery bool          `yaml:"leader_discovery"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// Default returns the configuration every LoadYAML call starts from before
// the file's own fields (and any environment overlay) are applied.
func Default() ClusterConfig {
	return ClusterConfig{
		ConnectTimeout:     5 * time.Second,
		ResponseTimeout:    60 * time.Second,
		MaxRedirects:       2,
		MaxAttemptsPerHost: 2,
		ReadConsistency:    "weak",
		Freshness:          5 * time.Minute,
	}
}

// LoadYAML reads a ClusterConfig from path, starting from Default() so a
// file only needs to specify the fields it wants to override.
func LoadYAML(path string) (ClusterConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if len(cfg.Hosts) == 0 {
		return cfg, fmt.Errorf("config: %s: no hosts configured", path)
	}
	return cfg, nil
}

// ApplyEnvOverlay overrides cfg's fields from RQLITEC_* environment
// variables, mirroring the teacher's own getEnv*-with-fallback pattern for
// server configuration. Unset variables leave the existing value alone.
func ApplyEnvOverlay(cfg ClusterConfig) ClusterConfig {
	if v := os.Getenv("RQLITEC_HOSTS"); v != "" {
		cfg.Hosts = splitAndTrim(v)
	}
	if v := os.Getenv("RQLITEC_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("RQLITEC_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("RQLITEC_CONNECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ConnectTimeout = d
		}
	}
	if v := os.Getenv("RQLITEC_RESPONSE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ResponseTimeout = d
		}
	}
	if v := os.Getenv("RQLITEC_MAX_REDIRECTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRedirects = n
		}
	}
	if v := os.Getenv("RQLITEC_MAX_ATTEMPTS_PER_HOST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxAttemptsPerHost = n
		}
	}
	if v := os.Getenv("RQLITEC_READ_CONSISTENCY"); v != "" {
		cfg.ReadConsistency = v
	}
	if v := os.Getenv("RQLITEC_LEADER_DISCOVERY"); v != "" {
		cfg.UseLeaderDiscovery = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("RQLITEC_SLOW_QUERY_THRESHOLD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SlowQueryThreshold = d
		}
	}
	return cfg
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
