package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe every configured host and print dispatch statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect()
		if err != nil {
			return err
		}
		defer conn.Close()

		live := conn.ProbeHosts(context.Background())
		hosts := make([]string, 0, len(live))
		for h := range live {
			hosts = append(hosts, h)
		}
		sort.Strings(hosts)
		for _, h := range hosts {
			state := "down"
			if live[h] {
				state = "up"
			}
			fmt.Printf("%s\t%s\n", h, state)
		}

		stats := conn.Stats()
		fmt.Printf("attempts=%d redirects_followed=%d hosts_exhausted=%d last_known_leader=%q last_error=%q\n",
			stats.Attempts, stats.RedirectsFollowed, stats.HostsExhaustedN, stats.LastKnownLeader, stats.LastError)
		return nil
	},
}
