package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Edit the config file directly",
	Long: `Config commands read and write the config file without a server.

A running server picks up the changes through its file watcher. Use
"wikibook api settings" to go through the server instead.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		api.Progressf("wrote %s", path)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List settings with their source",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := configStore()
		if err != nil {
			return err
		}
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		entries, err := store.GetByPrefix(cmd.Context(), prefix)
		if err != nil {
			return err
		}
		rows := make([]config.Entry, 0, len(entries))
		for _, k := range config.SortedKeys(entries) {
			rows = append(rows, entries[k])
		}
		return api.Output(rows)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := configStore()
		if err != nil {
			return err
		}
		entry, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("%w: %s", config.ErrUnknownKey, args[0])
		}
		return api.Output(entry)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting in the config file",
	Long: `Change a setting in the config file.

The value is converted to the key's type. Lists are comma separated:
  wikibook config set wiki.exclude_categories "Drafts, Hidden"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := configStore()
		if err != nil {
			return err
		}
		if err := store.Set(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		entry, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return api.Output(entry)
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset <key>",
	Short: "Remove a setting from the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := configStore()
		if err != nil {
			return err
		}
		if err := config.ResetToDefault(cmd.Context(), store, args[0]); err != nil {
			return err
		}
		entry, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return api.Output(entry)
	},
}

// configPath is --config, or config.yaml in the home directory.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	h, err := openHome()
	if err != nil {
		return "", err
	}
	return h.ConfigPath(), nil
}

func configStore() (config.Store, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return config.NewStore(path), nil
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)

	rootCmd.AddCommand(configCmd)
}
