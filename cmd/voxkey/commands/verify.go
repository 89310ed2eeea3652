package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/voxkey/pkg/cli"
	"github.com/haivivi/voxkey/pkg/voiceauth"
	"github.com/haivivi/voxkey/pkg/voiceprint"
)

var (
	verifyFile  string
	verifyOwner string
)

var verifyCmd = &cobra.Command{
	Use:   "verify [-f request] | --owner <id> <file>",
	Short: "Verify a recording against an owner's template",
	Long: `Verify a claimed identity.

The request is read from -f (default stdin) as JSON or YAML and carries
either an inline recording or a path to an audio file:

  {"owner_id": "alice", "recording": "<base64 float32LE>"}
  {"owner_id": "alice", "path": "probe.f32"}

Alternatively pass --owner and one audio file.

The response is one JSON line:

  {"accepted": true, "similarity": 0.91, "threshold": 0.75, "confidence": "high"}

Handled failures (unknown owner, invalid audio, extraction errors) print
{"error": "...", "code": "..."} and exit 0.

Examples:
  voxkey verify < verify.json
  voxkey verify --owner alice probe.pcm`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var req voiceauth.VerifyRequest
		switch {
		case verifyOwner != "":
			if len(args) != 1 {
				return fmt.Errorf("--owner requires exactly one audio file")
			}
			req.OwnerID = verifyOwner
			req.Path = args[0]
		case len(args) > 0:
			return fmt.Errorf("audio files require --owner")
		default:
			if err := cli.LoadRequest(verifyFile, &req); err != nil {
				return fmt.Errorf("verify request: %w", err)
			}
			if req.Path != "" && req.Recording != nil {
				return fmt.Errorf("verify request: recording and path are mutually exclusive")
			}
		}

		e, err := openEnv(ctx, nil)
		if err != nil {
			return err
		}
		defer e.Close()

		if req.Path != "" {
			samples, err := loadAudioFile(req.Path)
			if err != nil {
				if errors.Is(err, voiceprint.ErrInvalidAudio) {
					return printVerify(voiceprint.Result{}, err)
				}
				return err
			}
			res, err := e.svc.Verify(ctx, req.OwnerID, samples)
			return printVerify(res, err)
		}
		res, err := e.svc.VerifyBuffer(ctx, req.OwnerID, req.Recording)
		return printVerify(res, err)
	},
}

func printVerify(res voiceprint.Result, err error) error {
	if err != nil {
		return printResult(voiceauth.NewErrorResponse(err))
	}
	return printResult(voiceauth.NewVerifyResponse(res))
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyFile, "file", "f", "-", "request file (use '-' for stdin)")
	verifyCmd.Flags().StringVar(&verifyOwner, "owner", "", "owner id when verifying an audio file")
	rootCmd.AddCommand(verifyCmd)
}
