package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bacaltosclinic/portal-api/cmd/clinicctl/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "clinicctl",
		Short: "Operator tool for the Clinic Portal API",
		Long:  "CLI tool for managing portal users and probing service health",
	}

	rootCmd.AddCommand(commands.NewUsersCmd())
	rootCmd.AddCommand(commands.NewHealthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
