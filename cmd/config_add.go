package cmd

import (
	"fmt"

	"github.com/brogergvhs/pagekit/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var configAddFrom string

var configAddCmd = &cobra.Command{
	Use:   "add [label]",
	Short: "Create a new config profile, from defaults or from an existing YAML file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var label string

		if len(args) == 1 {
			label = args[0]
		} else {
			prompt := promptui.Prompt{Label: "Label for new config"}

			var err error
			label, err = prompt.Run()
			if err != nil {
				return fmt.Errorf("aborted")
			}
		}

		if configAddFrom != "" {
			if err := config.AddConfig(label, configAddFrom); err != nil {
				return err
			}
			fmt.Printf("Imported %s as config %q\n", configAddFrom, label)
			return nil
		}

		path, err := config.CreateEmptyConfig(label)
		if err != nil {
			return err
		}

		fmt.Printf("Created new config: %s\n", path)
		return nil
	},
}

func init() {
	configAddCmd.Flags().StringVar(&configAddFrom, "from", "", "import an existing YAML file instead of defaults")
	configCmd.AddCommand(configAddCmd)
}
