package bisync

import (
	"context"
	"log/slog"
)

// Lister enumerates every file under an endpoint, recursively, files
// only. Implementations must be side-effect free; an empty endpoint is
// a valid zero-file listing, distinct from a failure.
type Lister interface {
	List(ctx context.Context, endpoint string) (map[string]*FileAttributes, error)
}

// ListError is a listing that kept failing after every allowed attempt.
// It identifies which side could not be listed.
type ListError struct {
	Side     Side
	Endpoint string
	Attempts int
	Err      error
}

func (e *ListError) Error() string {
	return "failed to list side " + e.Side.String() + " (" + e.Endpoint + "): " + e.Err.Error()
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// listWithRetry attempts the listing up to retries times, sequentially.
// Each failed attempt is logged; exhaustion returns a side-tagged
// ListError. retries=1 means no retry at all.
func listWithRetry(ctx context.Context, lister Lister, side Side, endpoint string, retries int) (map[string]*FileAttributes, error) {
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		listing, err := lister.List(ctx, endpoint)
		if err == nil {
			return listing, nil
		}
		lastErr = err
		slog.Warn("listing failed", "side", side, "endpoint", endpoint, "attempt", attempt, "of", retries, "error", err)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, &ListError{Side: side, Endpoint: endpoint, Attempts: retries, Err: lastErr}
}
