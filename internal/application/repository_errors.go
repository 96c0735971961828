package application

import (
	"errors"
	"fmt"

	"github.com/example/gasguard/internal/persistence"
)

// mapRepoError translates persistence errors into the application taxonomy.
// missing replaces persistence.ErrNotFound so callers can surface the
// reference that failed (ErrUnknownEquipment, ErrUnknownTechnician...).
func mapRepoError(err error, missing error) error {
	if err == nil {
		return nil
	}
	if missing == nil {
		missing = ErrNotFound
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return missing
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, persistence.ErrReferenceMissing):
		return fmt.Errorf("%w: %v", ErrUnknownEquipment, err)
	case errors.Is(err, persistence.ErrImmutableField):
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return err
}
