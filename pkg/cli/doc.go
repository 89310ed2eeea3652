// Package cli provides common utilities for the voxkey command-line tool.
//
// This package includes:
//   - Output formatting (JSON, YAML)
//   - Request loading from stdin or files (JSON/YAML)
//   - Per-user configuration directory lookup
//
// Responses are written to stdout with Output so that callers can pipe
// them into other tools; diagnostics go to stderr through slog.
//
// Example usage:
//
//	var req voiceauth.VerifyRequest
//	if err := cli.ReadRequest(os.Stdin, "", &req); err != nil {
//	    return err
//	}
//	cli.Output(resp, cli.OutputOptions{Format: cli.FormatJSON, Compact: true})
package cli
