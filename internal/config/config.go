package config

import (
	"errors"
	"os"
	"path/filepath"
)

var (
	home, _        = os.UserHomeDir()
	DefaultWorkDir = filepath.Join(home, ".bisync")
)

// Config holds one run's settings. It is run-scoped: components receive
// the values they need explicitly, nothing reads this from ambient
// state.
type Config struct {
	Path1        string
	Path2        string
	RclonePath   string
	RcloneConfig string
	WorkDir      string
	Retries      int
	DryRun       bool
}

func (c *Config) Validate() error {
	if c.Path1 == "" {
		return errors.New("first path is required")
	}
	if c.Path2 == "" {
		return errors.New("second path is required")
	}
	if c.RclonePath == "" {
		return errors.New("rclone executable path cannot be empty")
	}
	if c.WorkDir == "" {
		return errors.New("working directory cannot be empty")
	}
	if c.Retries < 1 {
		return errors.New("retries must be at least 1")
	}
	return nil
}
