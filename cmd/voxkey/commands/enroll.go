package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/voxkey/pkg/cli"
	"github.com/haivivi/voxkey/pkg/voiceauth"
)

var (
	enrollFile  string
	enrollOwner string
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [-f request] | --owner <id> <file>...",
	Short: "Enroll an owner from a batch of recordings",
	Long: `Enroll an owner's voice template.

The request is read from -f (default stdin) as JSON or YAML:

  {"owner_id": "alice", "recordings": ["<base64 float32LE>", ...]}

Alternatively pass --owner and audio files (.f32 raw float32LE, .pcm/.s16
16-bit PCM, .b64 base64 float32LE), all 16 kHz mono.

The response is one JSON line:

  {"success": true, "used": 10, "failed": 0, "enrollment_id": "..."}

Recordings that fail extraction are skipped. A failed enrollment is reported
as "success": false with an "error" and "code"; the exit status is 0 for any
well-formed response.

Examples:
  voxkey enroll < enroll.json
  voxkey enroll -f enroll.yaml
  voxkey enroll --owner alice rec1.f32 rec2.f32 rec3.f32`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var (
			req     voiceauth.EnrollRequest
			samples [][]float32
		)
		if enrollOwner != "" {
			if len(args) == 0 {
				return fmt.Errorf("--owner requires at least one audio file")
			}
			req.OwnerID = enrollOwner
			for _, path := range args {
				s, err := loadAudioFile(path)
				if err != nil {
					return err
				}
				samples = append(samples, s)
			}
		} else {
			if len(args) > 0 {
				return fmt.Errorf("audio files require --owner")
			}
			if err := cli.LoadRequest(enrollFile, &req); err != nil {
				return fmt.Errorf("enroll request: %w", err)
			}
		}

		e, err := openEnv(ctx, nil)
		if err != nil {
			return err
		}
		defer e.Close()

		var res *voiceauth.EnrollResult
		if samples != nil {
			res, err = e.svc.Enroll(ctx, req.OwnerID, samples)
		} else {
			res, err = e.svc.EnrollBuffers(ctx, req.OwnerID, req.Buffers())
		}
		return printResult(voiceauth.NewEnrollResponse(res, err))
	},
}

func init() {
	enrollCmd.Flags().StringVarP(&enrollFile, "file", "f", "-", "request file (use '-' for stdin)")
	enrollCmd.Flags().StringVar(&enrollOwner, "owner", "", "owner id when enrolling from audio files")
	rootCmd.AddCommand(enrollCmd)
}
