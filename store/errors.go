package store

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a road id does not exist.
	ErrNotFound = errors.New("road not found")
	// ErrInvalidRoad is returned when a road fails validation before a write.
	ErrInvalidRoad = errors.New("invalid road")
)

// mapDBError converts driver level errors into package sentinels.
func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func notFound(id int64) error {
	return fmt.Errorf("%w: %d", ErrNotFound, id)
}
