package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stratumhq/stratum/internal/cli"
	"github.com/stratumhq/stratum/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stratumd",
		Short: "Stratum daemon and CLI",
		Long:  "Stratum daemon for running the API server and managing scopes and API keys",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.ScopeCmd())
	rootCmd.AddCommand(admin.APIKeyCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
