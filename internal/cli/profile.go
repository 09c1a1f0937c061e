package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhath/ezconn/internal/db"
)

func newProfileCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage connection profiles",
	}

	cmd.AddCommand(newProfileListCommand(a))
	cmd.AddCommand(newProfileAddCommand(a))
	cmd.AddCommand(newProfileRemoveCommand(a))
	cmd.AddCommand(newProfileDefaultCommand(a))

	return cmd
}

func newProfileListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			a.printer().Profiles(a.cfg.Profiles, a.cfg.DefaultProfile)
			return nil
		}),
	}
}

func newProfileAddCommand(a *app) *cobra.Command {
	var (
		target     targetFlags
		makeDef    bool
		sshHost    string
		sshPort    int
		sshUser    string
		sshKeyPath string
		sshPass    string
		sshKnown   string
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Save a connection profile",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			p, err := target.profile(args[0])
			if err != nil {
				return err
			}
			if _, err := db.ParseDriverType(p.Type); err != nil {
				return err
			}
			p.SSHHost, p.SSHPort, p.SSHUser, p.SSHKeyPath = sshHost, sshPort, sshUser, sshKeyPath
			p.SSHPassword, p.SSHKnownHosts = sshPass, sshKnown

			if err := a.cfg.AddProfile(p); err != nil {
				return err
			}
			if makeDef {
				if err := a.cfg.SetDefault(p.Name); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved profile %s (%s)\n", p.Name, p.BuildDSN())
			return nil
		}),
	}
	target.register(cmd)
	flags := cmd.Flags()
	flags.BoolVar(&makeDef, "default", false, "make this the default profile")
	flags.StringVar(&sshHost, "ssh-host", "", "SSH bastion host")
	flags.IntVar(&sshPort, "ssh-port", 0, "SSH port (default 22)")
	flags.StringVar(&sshUser, "ssh-user", "", "SSH user")
	flags.StringVar(&sshKeyPath, "ssh-key", "", "SSH private key path")
	flags.StringVar(&sshPass, "ssh-password", "", "SSH password, also used as the key passphrase")
	flags.StringVar(&sshKnown, "ssh-known-hosts", "", "known_hosts file used to verify the SSH host key")

	return cmd
}

func newProfileRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a saved profile",
		Args:    cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.DeleteProfile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed profile %s\n", args[0])
			return nil
		}),
	}
}

func newProfileDefaultCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "default NAME",
		Short: "Set the profile used when open is run without arguments",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.SetDefault(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "default profile is now %s\n", args[0])
			return nil
		}),
	}
}
