package ledger

import (
	"errors"
	"fmt"

	"github.com/facturier/facturier/internal/platform/httpx"
)

var (
	// ErrValidation marks rejected input. Nothing is mutated when it is returned.
	ErrValidation = fmt.Errorf("ledger: %w", httpx.ErrValidation)
	// ErrNotFound is returned for unknown ids.
	ErrNotFound = fmt.Errorf("ledger: %w", httpx.ErrNotFound)
	// ErrPersist wraps store failures. In-memory state is left unchanged.
	ErrPersist = errors.New("ledger: persist failed")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}
