package main

import (
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

var activeProfile interface{ Stop() }

func startProfileIfRequested(cmd *cobra.Command, args []string) error {
	if cpuProfile == "" {
		return nil
	}
	activeProfile = profile.Start(profile.CPUProfile, profile.ProfilePath(cpuProfile))
	return nil
}

func stopProfile() error {
	if activeProfile != nil {
		activeProfile.Stop()
	}
	return nil
}
