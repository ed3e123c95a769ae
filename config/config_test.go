package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cluster.yaml")
	content := `
hosts:
  - "10.0.0.1:4001"
  - "10.0.0.2:4001"
read_consistency: strong
max_redirects: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadYAML(path)
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.1:4001", "10.0.0.2:4001"}, cfg.Hosts)
	require.Equal(t, "strong", cfg.ReadConsistency)
	require.Equal(t, 3, cfg.MaxRedirects)
	require.Equal(t, 2, cfg.MaxAttemptsPerHost) // inherited from Default()
}

func TestLoadYAMLRequiresHosts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("read_consistency: weak\n"), 0o644))

	_, err := LoadYAML(path)
	require.Error(t, err)
}

func TestApplyEnvOverlay(t *testing.T) {
	t.Setenv("RQLITEC_HOSTS", "a:1, b:2")
	t.Setenv("RQLITEC_MAX_REDIRECTS", "5")
	t.Setenv("RQLITEC_CONNECT_TIMEOUT", "2s")

	cfg := ApplyEnvOverlay(Default())
	require.Equal(t, []string{"a:1", "b:2"}, cfg.Hosts)
	require.Equal(t, 5, cfg.MaxRedirects)
	require.Equal(t, 2*time.Second, cfg.ConnectTimeout)
}
