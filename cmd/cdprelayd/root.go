// Package cli assembles the cdprelayd command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cdprelay/relay/internal/relay"
)

var (
	cfgFile string
	verbose bool
)

// ServerConfig holds the loaded relay configuration (set by main, overridden
// by flags in each subcommand).
var ServerConfig relay.Config

// SetupRootCmd configures the root command with all subcommands and flags.
func SetupRootCmd(c relay.Config) *cobra.Command {
	ServerConfig = c

	rootCmd := &cobra.Command{
		Use:   "cdprelayd",
		Short: "Chrome DevTools Protocol relay server",
		Long: `cdprelayd bridges a single browser-extension CDP producer to many
automation clients speaking the standard DevTools Protocol.

Run 'cdprelayd serve' to start the relay.`,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(runServe(ServerConfig))
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file (default: embedded)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(DoctorCmd())

	return rootCmd
}
