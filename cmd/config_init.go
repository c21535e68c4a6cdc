package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/brogergvhs/pagekit/internal/config"

	"github.com/spf13/cobra"
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the Default config",
	RunE: func(cmd *cobra.Command, args []string) error {
		if list, err := config.ListConfigs(); err == nil {
			for _, c := range list {
				if c.Label == "Default" {
					fmt.Println("Configuration already exists at:")
					fmt.Println("  ", c.Path)
					fmt.Println("Use `pagekit config reset` to recreate it.")
					return nil
				}
			}
		}

		fmt.Println("Configuration directory:")
		fmt.Println("  ", config.ConfigsDir())
		fmt.Println()

		fmt.Println("Default configuration:")
		config.DefaultConfig().Print()
		fmt.Println()

		if !confirm("Create the Default config") {
			fmt.Println("Aborted.")
			return nil
		}

		path, err := config.InitDefaultConfig()
		if err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("failed to write config file: %w", err)
		}

		fmt.Println("Config created at:", path)
		fmt.Println("This config is now active (label: Default).")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
