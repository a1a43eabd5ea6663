// Package main provides the scanport CLI entrypoint.
//
// Usage:
//
//	scanport <command> [options]
//
// Exit codes for scan:
//   - 0: payload imported (or already present)
//   - 1: scan failed or was cancelled
//   - 2: import rejected the payload
//   - 3: invalid arguments, config or input stream
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/scanport/cli/cmd"
	"github.com/justapithecus/scanport/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

var (
	osExit           = os.Exit
	stderr io.Writer = os.Stderr
)

func newApp() *cli.App {
	return &cli.App{
		Name:           "scanport",
		Usage:          "Reassemble animated QR and NFC wallet payloads",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.ScanCommand(),
			cmd.ClassifyCommand(),
			cmd.SplitCommand(),
			cmd.JournalCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors.
		osExit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() is empty; skip "exit status N" noise too.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(stderr, msg)
		}
		osExit(code)
		return
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	osExit(1)
}
