package archive

import (
	"context"
	"errors"
	"fmt"
)

// Common archive error types
var (
	ErrDocumentNotFound = errors.New("archived document not found")
	ErrInvalidKey       = errors.New("invalid archive key")
)

// Store persists immutable document snapshots under string keys.
// Keys use forward slashes as path separators regardless of platform.
type Store interface {
	// Put stores data under the given key, overwriting any existing document
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the document stored under key
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether a document is stored under key
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the keys of all documents whose key starts with prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the document stored under key
	Delete(ctx context.Context, key string) error
}

// ArchiveError represents an archive operation failure with additional context
type ArchiveError struct {
	Op        string // Operation that failed (e.g., "Put", "Get")
	Key       string // Archive key involved in the operation
	Err       error  // Underlying error
	Retryable bool   // Whether the operation can be retried
}

func (e *ArchiveError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("archive %s failed for key '%s': %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("archive %s failed: %v", e.Op, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// NewArchiveError creates a new ArchiveError
func NewArchiveError(op, key string, err error, retryable bool) *ArchiveError {
	return &ArchiveError{
		Op:        op,
		Key:       key,
		Err:       err,
		Retryable: retryable,
	}
}

// IsNotFound returns true if the error indicates a missing document
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

// IsRetryable returns true if the error indicates a transient condition
func IsRetryable(err error) bool {
	var archiveErr *ArchiveError
	if errors.As(err, &archiveErr) {
		return archiveErr.Retryable
	}
	return false
}
