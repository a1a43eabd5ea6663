package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	scanconfig "github.com/justapithecus/scanport/cli/config"
)

// Precedence for every setting: explicit flag, then config file, then the
// flag default.

func loadConfig(c *cli.Context) (*scanconfig.Config, error) {
	path := c.String("config")
	explicit := path != ""
	if !explicit {
		path = scanconfig.DefaultPath
	}
	cfg, err := scanconfig.LoadOptional(path, explicit)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func configVal[T any](cfg *scanconfig.Config, get func(*scanconfig.Config) T) T {
	if cfg == nil {
		var zero T
		return zero
	}
	return get(cfg)
}

func resolveString(c *cli.Context, name, fromConfig string) string {
	if c.IsSet(name) || fromConfig == "" {
		return c.String(name)
	}
	return fromConfig
}

func resolveInt(c *cli.Context, name string, fromConfig int) int {
	if c.IsSet(name) || fromConfig == 0 {
		return c.Int(name)
	}
	return fromConfig
}

func resolveBool(c *cli.Context, name string, fromConfig bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return fromConfig || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, fromConfig time.Duration) time.Duration {
	if c.IsSet(name) || fromConfig == 0 {
		return c.Duration(name)
	}
	return fromConfig
}
