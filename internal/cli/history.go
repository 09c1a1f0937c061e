package cli

import (
	"github.com/spf13/cobra"
)

func newHistoryCommand(a *app) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "history [profile]",
		Short: "Show recorded connection attempts",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			profile := ""
			if len(args) == 1 {
				profile = args[0]
			}

			store, err := a.attemptStore()
			if err != nil {
				return err
			}
			list, err := store.List(profile, limit, offset)
			if err != nil {
				return err
			}
			a.printer().Attempts(list)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of attempts to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many attempts")

	return cmd
}
