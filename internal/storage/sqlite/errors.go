package sqlite

import (
	"fmt"
	"strings"

	"github.com/objectfs/historydb/internal/types"
)

func errReadOnly() error {
	return types.ErrReadOnly
}

func errNotFound(what string) error {
	return fmt.Errorf("%s: %w", what, types.ErrNotFound)
}

func errNotAvailableAtSchema() error {
	return types.ErrNotAvailableAtSchema
}

// isUniqueConstraintError reports whether err came from a UNIQUE or PRIMARY
// KEY constraint violation, independent of driver-specific error typing.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
