package config

import "github.com/rqlitec/rqlitec"

// ToConnectionOptions converts a loaded ClusterConfig into the
// rqlitec.ConnectionOptions a Connection is built from. logger may be nil.
func ToConnectionOptions(cfg ClusterConfig, logger rqlitec.Logger) rqlitec.ConnectionOptions {
	opts := rqlitec.DefaultOptions()
	opts.Hosts = cfg.Hosts
	opts.Username = cfg.Username
	opts.Password = cfg.Password
	opts.ConnectTimeout = cfg.ConnectTimeout
	opts.ResponseTimeout = cfg.ResponseTimeout
	opts.MaxRedirects = cfg.MaxRedirects
	opts.MaxAttemptsPerHost = cfg.MaxAttemptsPerHost
	opts.Freshness = cfg.Freshness
	opts.UseLeaderDiscovery = cfg.UseLeaderDiscovery
	opts.SlowQueryThreshold = cfg.SlowQueryThreshold
	opts.Logger = logger

	switch cfg.ReadConsistency {
	case "strong":
		opts.ReadConsistency = rqlitec.Strong
	case "none":
		opts.ReadConsistency = rqlitec.None
	default:
		opts.ReadConsistency = rqlitec.Weak
	}
	return opts
}
