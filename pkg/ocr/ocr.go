package ocr

import (
	"context"
	"errors"

	"github.com/musterhq/muster/pkg/types"
)

var (
	// ErrJobNotFound is returned when a handle refers to no known job.
	ErrJobNotFound = errors.New("ocr job not found")
	// ErrCancelUnsupported is returned by backends that cannot cancel
	// a submitted job. Callers treat it as best-effort cancellation.
	ErrCancelUnsupported = errors.New("ocr backend cannot cancel jobs")
)

// PollState is the coarse status of an async OCR job.
type PollState int

const (
	StatePending PollState = iota
	StateSucceeded
	StateFailed
)

// PollResult is one Poll observation.
type PollResult struct {
	State PollState
	// Reason is set when State is StateFailed.
	Reason string
}

// Client is the async OCR service adapter.
type Client interface {
	// Start submits a job for the original at ref and returns an
	// opaque handle.
	Start(ctx context.Context, ref types.BlobRef) (string, error)

	// Poll reports the job's current status.
	Poll(ctx context.Context, handle string) (PollResult, error)

	// FetchAll retrieves the complete block list, following every
	// continuation token. The returned order is the order the service
	// delivered.
	FetchAll(ctx context.Context, handle string) ([]types.Block, error)

	// Cancel attempts to stop a running job. Backends without a
	// cancel operation return ErrCancelUnsupported.
	Cancel(ctx context.Context, handle string) error
}

// Lines filters blocks down to LINE entries, preserving order.
func Lines(blocks []types.Block) []types.Block {
	var lines []types.Block
	for _, b := range blocks {
		if b.Type == types.BlockLine {
			lines = append(lines, b)
		}
	}
	return lines
}

// PlainText joins LINE block texts with newlines, in delivery order.
func PlainText(blocks []types.Block) string {
	lines := Lines(blocks)
	out := make([]byte, 0, 64*len(lines))
	for i, b := range lines {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, b.Text...)
	}
	return string(out)
}
