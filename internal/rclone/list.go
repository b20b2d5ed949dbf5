package rclone

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openmined/bisync/internal/bisync"
)

// List enumerates every file under the endpoint, recursively, using
// `rclone lsf -R --files-only --format pts`. An endpoint with no files
// returns an empty map; a failed invocation returns an error.
func (c *Client) List(ctx context.Context, endpoint string) (map[string]*bisync.FileAttributes, error) {
	out, err := c.run(ctx, "lsf", "-R", "--files-only", "--format", "pts", endpoint)
	if err != nil {
		return nil, err
	}
	return parseLsf(out)
}

// parseLsf parses `path;timestamp;size` lines. File names may contain
// semicolons, so the line is split from the right.
func parseLsf(out string) (map[string]*bisync.FileAttributes, error) {
	files := make(map[string]*bisync.FileAttributes)

	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}

		sizeSep := strings.LastIndexByte(line, ';')
		if sizeSep < 0 {
			return nil, fmt.Errorf("malformed lsf line %q", line)
		}
		timeSep := strings.LastIndexByte(line[:sizeSep], ';')
		if timeSep < 0 {
			return nil, fmt.Errorf("malformed lsf line %q", line)
		}

		path := line[:timeSep]
		if path == "" {
			return nil, fmt.Errorf("malformed lsf line %q", line)
		}

		modTime, err := time.Parse(bisync.TimestampFormat, line[timeSep+1:sizeSep])
		if err != nil {
			return nil, fmt.Errorf("bad timestamp in lsf line %q: %w", line, err)
		}

		size, err := strconv.ParseInt(line[sizeSep+1:], 10, 64)
		if err != nil || size < 0 {
			return nil, fmt.Errorf("bad size in lsf line %q", line)
		}

		files[path] = &bisync.FileAttributes{Size: size, ModTime: modTime}
	}

	return files, nil
}
