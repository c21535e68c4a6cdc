package cmd

import (
	"fmt"

	"github.com/brogergvhs/pagekit/internal/config"

	"github.com/spf13/cobra"
)

var configRenameCmd = &cobra.Command{
	Use:   "rename <old_label> <new_label>",
	Short: "Rename a pagekit profile; the active marker follows it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to := args[0], args[1]

		if err := config.RenameConfig(from, to); err != nil {
			return err
		}

		path, err := config.ConfigPathByLabel(to)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Profile %q is now %q\n  %s\n", from, to, path)
		if active, _ := config.CurrentLabel(); active == to {
			fmt.Fprintln(out, "It is still the active profile.")
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configRenameCmd)
}
