package rclone

import (
	"context"
	"fmt"
	"strings"

	"github.com/openmined/bisync/internal/bisync"
)

// Executor applies reconciliation actions with `rclone copyto` and
// `rclone deletefile`. It holds the pair's canonical endpoints in the
// same A/B order the engine uses.
type Executor struct {
	client    *Client
	endpointA string
	endpointB string
}

func NewExecutor(client *Client, endpointA, endpointB string) *Executor {
	return &Executor{client: client, endpointA: endpointA, endpointB: endpointB}
}

func (e *Executor) Copy(ctx context.Context, op *bisync.SyncOperation) error {
	var src, dst string
	switch op.Op {
	case bisync.OpCopyAToB:
		src, dst = join(e.endpointA, op.RelPath), join(e.endpointB, op.RelPath)
	case bisync.OpCopyBToA:
		src, dst = join(e.endpointB, op.RelPath), join(e.endpointA, op.RelPath)
	default:
		return fmt.Errorf("not a copy operation: %s", op.Op)
	}

	_, err := e.client.run(ctx, "copyto", src, dst)
	return err
}

func (e *Executor) Delete(ctx context.Context, op *bisync.SyncOperation) error {
	var target string
	switch op.Op {
	case bisync.OpDeleteA:
		target = join(e.endpointA, op.RelPath)
	case bisync.OpDeleteB:
		target = join(e.endpointB, op.RelPath)
	default:
		return fmt.Errorf("not a delete operation: %s", op.Op)
	}

	_, err := e.client.run(ctx, "deletefile", target)
	return err
}

// join appends a listing-relative path to an endpoint. Listings always
// use forward slashes, and a bare `remote:` endpoint needs no extra
// separator.
func join(endpoint, rel string) string {
	if strings.HasSuffix(endpoint, ":") || strings.HasSuffix(endpoint, "/") {
		return endpoint + rel
	}
	return endpoint + "/" + rel
}
