package services

import (
	"errors"
	"fmt"
)

// Domain outcomes. These are normal results of an operation, not faults; the
// handler layer matches them with errors.Is and maps each to its own status.
var (
	ErrInvalidInput         = errors.New("invalid discussion input")
	ErrNotFound             = errors.New("discussion not found")
	ErrNotAuthor            = errors.New("not the author")
	ErrBanned               = errors.New("banned user")
	ErrAlreadyParticipating = errors.New("already participating")
	ErrNotParticipating     = errors.New("not participating")
)

// PersistenceError wraps a storage-layer fault. Callers must treat it as a
// generic internal failure and never surface the underlying cause to clients.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence reports whether err is a storage-layer fault.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// requireOwner is the single authorization guard shared by update and delete.
func requireOwner(ownerID, requesterID uint) error {
	if ownerID != requesterID {
		return ErrNotAuthor
	}
	return nil
}
