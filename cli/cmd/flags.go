// Package cmd provides CLI commands for the scanport binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml (default: table on a terminal, json otherwise)",
	}

	// ConfigFlag points at a scanport.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file (default: ./scanport.yaml when present)",
		EnvVars: []string{"SCANPORT_CONFIG"},
	}

	// LogLevelFlag sets the minimum log level.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
		Value: "info",
	}
)

// OutputFlags returns the flags shared by every command that renders output.
func OutputFlags() []cli.Flag {
	return []cli.Flag{FormatFlag, ConfigFlag}
}

// journalFlags are shared by scan (write) and journal (read).
func journalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "journal-dataset",
			Usage: "Journal dataset name",
			Value: "scanport",
		},
		&cli.StringFlag{
			Name:  "journal-backend",
			Usage: "Journal backend: fs or s3",
			Value: "fs",
		},
		&cli.StringFlag{
			Name:  "journal-path",
			Usage: "Journal location (fs: directory, s3: bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "journal-s3-region",
			Usage: "AWS region for the s3 backend (default: SDK chain)",
		},
		&cli.StringFlag{
			Name:  "journal-s3-endpoint",
			Usage: "Custom endpoint for S3-compatible stores",
		},
		&cli.BoolFlag{
			Name:  "journal-s3-path-style",
			Usage: "Force path-style S3 addressing",
		},
	}
}
