package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/voxkey/pkg/voiceauth"
)

var removeCmd = &cobra.Command{
	Use:   "remove <owner>",
	Short: "Delete an owner's template",
	Long: `Delete the voice template of an owner. Removing an owner that is not
enrolled succeeds. The owner can enroll again afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.svc.Remove(cmd.Context(), args[0]); err != nil {
			return err
		}
		return printResult(map[string]any{"owner_id": args[0], "removed": true})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <owner>",
	Short: "Show template metadata",
	Long:  `Show the metadata of an owner's template. The embedding is never printed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer e.Close()

		t, err := e.svc.Template(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printDoc(voiceauth.NewTemplateInfo(t))
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled owners",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer e.Close()

		owners, err := e.svc.Owners(cmd.Context())
		if err != nil {
			return err
		}
		if owners == nil {
			owners = []string{}
		}
		return printDoc(map[string]any{"owners": owners})
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
}
