package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/polyxo/gridctl/internal/config"
	"github.com/polyxo/gridctl/internal/format"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit gridctl configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get <field>",
	Short: "Print the value of a config field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := cfg.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a config field and persist it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Start from the file contents, not the flag-merged view, so a
		// --endpoint passed to this very invocation is not persisted by
		// accident.
		stored, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := stored.Set(args[0], args[1]); err != nil {
			return err
		}
		return config.Save(stored)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every config field",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := make([][]string, 0, len(config.Fields()))
		for _, field := range config.Fields() {
			value, err := cfg.Get(field)
			if err != nil {
				return err
			}
			rows = append(rows, []string{field, value})
		}
		return format.Print(os.Stdout, outputFormat(), cfg, func() format.Table {
			return format.Table{Headers: []string{"Field", "Value"}, Rows: rows}
		})
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}
