// Package main is the entry point for the voxkey CLI.
//
// Usage:
//
//	voxkey [flags] <command> [args]
//
// Commands:
//
//	enroll   - Enroll an owner from a batch of recordings
//	verify   - Verify a recording against an owner's template
//	remove   - Delete an owner's template
//	show     - Show template metadata
//	list     - List enrolled owners
//	serve    - Run the HTTP API
//	config   - Show or initialize the configuration file
//	version  - Show version information
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/haivivi/voxkey/cmd/voxkey/commands"
	"github.com/haivivi/voxkey/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Execute(ctx)
	stop()
	if err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}
