package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// ackWait bounds how long a fire-and-forget command waits for a server
// notice before assuming success
const ackWait = time.Second

// withSession dials the relay, joins as the configured operator, runs fn,
// and announces departure
func withSession(cmd *cobra.Command, fn func(*Client) error) error {
	client, err := Dial(cmd.Context(), cfg.ServerURL, cfg.Timeout)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if err := client.Join(cfg.Name, cfg.Secret); err != nil {
		return err
	}

	return fn(client)
}

// runCommand issues a command line and surfaces any server notice. Most
// commands reply only on failure, so silence within the wait is success.
func runCommand(cmd *cobra.Command, line string) error {
	return withSession(cmd, func(client *Client) error {
		if err := client.Command(line); err != nil {
			return err
		}

		msg, err := client.WaitServerMessage(ackWait)
		if errors.Is(err, ErrNoReply) {
			return nil
		}
		if err != nil {
			return err
		}
		cmd.Println(msg)
		return nil
	})
}

func newKickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kick <name>",
		Short: "Disconnect a participant by display name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, "/kick "+args[0])
		},
	}
}

func newMuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mute <name>",
		Short: "Silence a participant's chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, "/mute "+args[0])
		},
	}
}

func newUnmuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unmute <name>",
		Short: "Restore a silenced participant's chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, "/unmute "+args[0])
		},
	}
}

func newAnnounceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "announce <message...>",
		Short: "Broadcast a server announcement to everyone",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, "/god "+strings.Join(args, " "))
		},
	}
}

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Admit non-privileged joins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, "/open")
		},
	}
}

func newCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Refuse non-privileged joins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, "/close")
		},
	}
}

func newPlayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "players",
		Short: "List connected participants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(client *Client) error {
				if err := client.Command("/players"); err != nil {
					return err
				}
				msg, err := client.WaitServerMessage(cfg.Timeout)
				if err != nil {
					return fmt.Errorf("waiting for player list: %w", err)
				}
				cmd.Println(msg)
				return nil
			})
		},
	}
}

func newNukeCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "nuke",
		Short: "Disconnect every participant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to disconnect everyone without --yes")
			}
			return withSession(cmd, func(client *Client) error {
				// The issuer goes down with everyone else, so there is
				// no reply to wait for
				return client.Command("/nuke")
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the mass disconnect")

	return cmd
}
