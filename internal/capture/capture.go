package capture

import (
	"context"
	"errors"
)

// Frame acquisition errors. Open failures are categorized so the caller
// can show one of a small set of user-facing messages and offer the
// still-image fallback.
var (
	// ErrNoFrame means the current attempt saw nothing decodable. This is
	// steady state while scanning, not a failure.
	ErrNoFrame = errors.New("no decodable frame")

	// ErrPermissionDenied means the source exists but cannot be read
	ErrPermissionDenied = errors.New("capture permission denied")

	// ErrDeviceNotFound means the configured source does not exist
	ErrDeviceNotFound = errors.New("capture device not found")

	// ErrUnsupported means the source content cannot be handled
	ErrUnsupported = errors.New("capture source unsupported")
)

// Source produces decoded QR text from captured frames. A Source is a
// scoped resource: Close must release everything it holds, and after Close
// no further Next call is made.
//
// Next returns the decoded text of one frame, ErrNoFrame when the frame
// held no code, or io.EOF when the source is exhausted (single still
// image). A live source never returns io.EOF.
type Source interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (string, error)
	Close() error
}
