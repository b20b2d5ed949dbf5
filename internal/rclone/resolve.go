package rclone

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/openmined/bisync/internal/utils"
)

var ErrEmptyPath = errors.New("path cannot be empty")

// ResolveEndpoint turns a user-supplied path into a canonical endpoint:
// an absolute local directory, or a verified `remote:path` string. The
// target directory is created on whichever side it lives.
//
// A `name:rest` path counts as remote only when name contains no slash
// (rclone treats `dir/with:colon` as local) and names a configured
// remote.
func (c *Client) ResolveEndpoint(ctx context.Context, path string, remotes mapset.Set[string]) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}

	name, _, found := strings.Cut(path, ":")
	if found && !strings.Contains(name, "/") {
		if !remotes.Contains(name) {
			return "", fmt.Errorf("remote %q was not found", name)
		}
		if err := c.Mkdir(ctx, path); err != nil {
			return "", err
		}
		return path, nil
	}

	resolved, err := utils.ResolvePath(path)
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(resolved); err != nil {
		return "", fmt.Errorf("cannot use path %q: %w", resolved, err)
	}
	return resolved, nil
}
