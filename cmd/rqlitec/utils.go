package main

import (
	"fmt"

	"github.com/rqlitec/rqlitec"
	"github.com/rqlitec/rqlitec/config"
)

// connect loads the cluster config (auto-generating nothing: unlike a
// chaos scenario file, a cluster's host list can't be guessed) and
// overlays RQLITEC_* environment variables before opening a Connection.
func connect() (*rqlitec.Connection, error) {
	path := cfgFile
	if path == "" {
		path = "rqlitec.yaml"
	}

	cfg, err := config.LoadYAML(path)
	if err != nil {
		return nil, fmt.Errorf("loading cluster config from %s: %w", path, err)
	}
	cfg = config.ApplyEnvOverlay(cfg)

	logger := rqlitec.Logger(rqlitec.NewStdLogger(verbose))
	opts := config.ToConnectionOptions(cfg, logger)

	return rqlitec.NewConnection(opts)
}
