package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var cfg *Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "relayctl",
		Short: "Operator CLI for the relay server",
		Long: `relayctl joins the relay with a privileged identity and issues
operator commands: kicking, muting, announcements, and gating the space
open or closed.

Credentials come from --name/--secret or the RELAYCTL_NAME and
RELAYCTL_SECRET environment variables, and must match an entry of the
server's ADMINS list.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Relay websocket URL (env: RELAYCTL_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Name, "name", cfg.Name, "Privileged display name (env: RELAYCTL_NAME)")
	rootCmd.PersistentFlags().StringVar(&cfg.Secret, "secret", cfg.Secret, "Privileged credential (env: RELAYCTL_SECRET)")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Connection and read timeout")

	// Add subcommands
	rootCmd.AddCommand(newKickCmd())
	rootCmd.AddCommand(newMuteCmd())
	rootCmd.AddCommand(newUnmuteCmd())
	rootCmd.AddCommand(newAnnounceCmd())
	rootCmd.AddCommand(newOpenCmd())
	rootCmd.AddCommand(newCloseCmd())
	rootCmd.AddCommand(newPlayersCmd())
	rootCmd.AddCommand(newNukeCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
