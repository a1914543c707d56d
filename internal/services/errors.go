package services

import (
	"errors"
	"fmt"

	"finance/internal/core"
)

// storeErr keeps NotFound and Conflict as they are and tags every other
// store failure as a dependency failure.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if classified(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, core.ErrDependency, err)
}

func classified(err error) bool {
	for _, kind := range []error{
		core.ErrNotFound,
		core.ErrBadRequest,
		core.ErrConflict,
		core.ErrDependency,
		core.ErrScheduleNotAdvanced,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// refErr converts a missing reference into kind, leaving other failures to storeErr.
func refErr(kind error, what string, id int64, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%w: %s %d not found", kind, what, id)
	}
	return storeErr("get "+what, err)
}
