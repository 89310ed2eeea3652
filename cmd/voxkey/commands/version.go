package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/voxkey/cmd/voxkey/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("format") {
			return printDoc(build.Get())
		}
		fmt.Println(build.String())
		if IsVerbose() {
			if _, path, err := loadConfig(); err == nil {
				fmt.Printf("  config: %s\n", path)
			} else {
				fmt.Printf("  config: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
