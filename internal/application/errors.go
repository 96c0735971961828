package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when a unique key such as an id or serial is already taken.
	ErrConflict = errors.New("application: conflict")
	// ErrInvalidTransition is returned when a state machine forbids the requested change.
	ErrInvalidTransition = errors.New("application: invalid transition")
	// ErrUnknownEquipment is returned when a command references absent equipment.
	ErrUnknownEquipment = errors.New("application: unknown equipment")
	// ErrUnknownIntervention is returned when a command references an absent intervention.
	ErrUnknownIntervention = errors.New("application: unknown intervention")
	// ErrUnknownTechnician is returned when a command references an absent technician.
	ErrUnknownTechnician = errors.New("application: unknown technician")
	// ErrInvalidArgument is returned for out of range or malformed input.
	ErrInvalidArgument = errors.New("application: invalid argument")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// Is makes every validation error match ErrInvalidArgument.
func (v *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func invalidField(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}
