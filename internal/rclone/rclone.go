// Package rclone wraps the rclone binary: listing endpoints, resolving
// user-supplied paths to canonical endpoints, and applying copy/delete
// actions. All invocations are context-aware and honor an optional
// config file override.
package rclone

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	ErrBinaryNotFound = errors.New("cannot find the rclone executable")
	ErrConfigNotFound = errors.New("cannot find the rclone configuration file")
)

var remoteNameRe = regexp.MustCompile(`(\S+):`)

// Client invokes a specific rclone binary, optionally with a custom
// configuration file.
type Client struct {
	binPath    string
	configPath string
}

func New(binPath, configPath string) *Client {
	if binPath == "" {
		binPath = "rclone"
	}
	return &Client{binPath: binPath, configPath: configPath}
}

// run executes rclone with the given arguments and returns its stdout.
// Failures carry rclone's stderr, which is where it reports its errors.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	if c.configPath != "" {
		args = append(args, "--config", c.configPath)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, c.binPath)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("rclone %s: %s", args[0], msg)
	}

	return stdout.String(), nil
}

// CheckConfig verifies that the rclone binary is runnable and that its
// configuration file exists. Missing binary and missing configuration
// are distinct setup failures.
func (c *Client) CheckConfig(ctx context.Context) error {
	out, err := c.run(ctx, "config", "file")
	if err != nil {
		if errors.Is(err, ErrBinaryNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrConfigNotFound, err)
	}

	// output is "Configuration file is stored at:\n<path>\n"
	parts := strings.SplitN(out, "\n", 2)
	if len(parts) < 2 {
		return fmt.Errorf("%w: unexpected output %q", ErrConfigNotFound, out)
	}
	configFile := strings.TrimSpace(parts[1])

	info, err := os.Stat(configFile)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrConfigNotFound, configFile)
	}
	return nil
}

// ListRemotes returns the names of the remotes configured in rclone.
func (c *Client) ListRemotes(ctx context.Context) (mapset.Set[string], error) {
	out, err := c.run(ctx, "listremotes")
	if err != nil {
		return nil, err
	}

	remotes := mapset.NewSet[string]()
	for _, match := range remoteNameRe.FindAllStringSubmatch(out, -1) {
		remotes.Add(match[1])
	}
	return remotes, nil
}

// Mkdir creates the target directory on a remote if it does not exist,
// verifying the remote is reachable in the process.
func (c *Client) Mkdir(ctx context.Context, endpoint string) error {
	_, err := c.run(ctx, "mkdir", endpoint)
	return err
}
