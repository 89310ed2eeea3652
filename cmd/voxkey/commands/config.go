package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/haivivi/voxkey/cmd/voxkey/internal/config"
	"github.com/haivivi/voxkey/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration: the config file on top of the
defaults. Prints YAML unless --format json is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("format") {
			formatOutput = "yaml"
		}
		return printDoc(cfg)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path(configFile)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path(configFile)
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		dir := filepath.Dir(path)
		if err := config.Default(dir).Save(path); err != nil {
			return err
		}
		paths := cli.Paths{AppName: config.AppName, Root: dir}
		if err := paths.EnsureDataDir(); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
