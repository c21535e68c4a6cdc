package cmd

import (
	"fmt"

	"github.com/brogergvhs/pagekit/internal/config"

	"github.com/spf13/cobra"
)

var forceRemove bool

var configRemoveCmd = &cobra.Command{
	Use:   "remove <label>",
	Short: "Delete a pagekit profile, falling back to Default if it was active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := args[0]
		out := cmd.OutOrStdout()

		path, err := config.ConfigPathByLabel(label)
		if err != nil {
			return err
		}

		active, _ := config.CurrentLabel()
		if label == active && !forceRemove {
			if !confirm(fmt.Sprintf("Profile %q is active. Remove it and fall back to Default", label)) {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}

		if err := config.RemoveConfig(label, forceRemove); err != nil {
			return err
		}

		fmt.Fprintf(out, "Removed profile %q\n  %s\n", label, path)
		if label == active {
			now, _ := config.CurrentLabel()
			fmt.Fprintf(out, "Active profile: %s\n", now)
		}
		return nil
	},
}

func init() {
	configRemoveCmd.Flags().BoolVarP(&forceRemove, "force", "f", false, "skip the prompt and recreate Default if needed")
	configCmd.AddCommand(configRemoveCmd)
}
