package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/koustreak/priam/internal/database"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Connect to the cluster and print its release version",
	Args:  cobra.NoArgs,
	RunE:  runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	start := time.Now()
	s, err := a.session(cmd.Context())
	if err != nil {
		return err
	}

	rows, err := s.Execute(cmd.Context(), "SELECT release_version FROM system.local", nil, database.QueryOptions{})
	if err != nil {
		return err
	}

	version := "unknown"
	if len(rows) > 0 {
		if v, ok := rows[0]["release_version"].(string); ok {
			version = v
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok: cassandra %s (%s)\n", version, time.Since(start).Round(time.Millisecond))
	return nil
}
