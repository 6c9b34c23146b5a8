package models

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized   = errors.New("not allowed to access this record")
	ErrDeliveryFailed = errors.New("reminder delivery failed")
)

// ValidationError rejects input before any mutation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// ConflictError reports the occurrence a candidate interval overlaps.
type ConflictError struct {
	With Occurrence
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("overlaps appointment %d (%s)", e.With.AppointmentID, e.With.Start.Format("2006-01-02 15:04"))
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Scope limits which owners' rows a caller may see.
type Scope func(ownerID int64) bool

// OwnerScope allows exactly one owner.
func OwnerScope(ownerID int64) Scope {
	return func(id int64) bool { return id == ownerID }
}

// Allows treats a nil scope as unrestricted.
func (s Scope) Allows(ownerID int64) bool {
	return s == nil || s(ownerID)
}
