package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// NewHealthCmd creates the health command
func NewHealthCmd() *cobra.Command {
	var apiURL string
	var extended bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the API's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(apiURL, "")
			if err != nil {
				return err
			}

			path := "/healthz"
			if extended {
				path += "?mode=extended"
			}

			var resp struct {
				Status string            `json:"status"`
				Uptime float64           `json:"uptime"`
				Checks map[string]string `json:"checks"`
			}
			if err := client.do(http.MethodGet, path, nil, &resp); err != nil {
				return err
			}

			fmt.Printf("Status: %s (uptime %.0fs)\n", resp.Status, resp.Uptime)
			for name, state := range resp.Checks {
				fmt.Printf("  %-10s %s\n", name, state)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (default PORTAL_API_URL or http://localhost:8080)")
	cmd.Flags().BoolVar(&extended, "extended", false, "Probe each dependency (database, redis, queue)")

	return cmd
}
