package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/polyxo/gridctl/internal/format"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Inspect the cluster itself",
}

var clusterInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show endpoint and component versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		versions, err := client.Versions(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching cluster versions: %w", err)
		}

		info := struct {
			Endpoint string `json:"endpoint" yaml:"endpoint"`
			Core     string `json:"core_version" yaml:"core_version"`
			API      string `json:"api_version" yaml:"api_version"`
		}{Endpoint: cfg.Endpoint, Core: versions.Core, API: versions.API}

		return format.Print(os.Stdout, outputFormat(), info, func() format.Table {
			return format.Table{
				Headers: []string{"Endpoint", "CoreVersion", "APIVersion"},
				Rows:    [][]string{{info.Endpoint, info.Core, info.API}},
			}
		})
	},
}

var clusterHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the health of cluster components",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		checks, err := client.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching cluster health: %w", err)
		}

		return format.Print(os.Stdout, outputFormat(), checks, func() format.Table {
			rows := make([][]string, len(checks))
			for i, c := range checks {
				status := "healthy"
				if !c.Healthy {
					status = "unhealthy"
				}
				msg := c.Message
				if msg == "" {
					msg = "-"
				}
				rows[i] = []string{c.Name, status, msg}
			}
			return format.Table{Headers: []string{"Service", "Status", "Message"}, Rows: rows}
		})
	},
}

func init() {
	clusterCmd.AddCommand(clusterInfoCmd, clusterHealthCmd)
	rootCmd.AddCommand(clusterCmd)
}
