package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("job application not found")
	ErrSubmitInFlight     = errors.New("a save is already in progress")
	ErrDeleteNotConfirmed = errors.New("delete not confirmed")
)

// ValidationError is returned before any store call when the input is incomplete
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fields (%s): %s", strings.Join(e.Fields, ", "), e.Reason)
}

// StoreWriteError wraps a create, update or delete rejected by the store
type StoreWriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreWriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// StoreSubscriptionError reports a failure of the live snapshot channel
type StoreSubscriptionError struct {
	Err error
}

func (e *StoreSubscriptionError) Error() string {
	return fmt.Sprintf("store subscription: %v", e.Err)
}

func (e *StoreSubscriptionError) Unwrap() error { return e.Err }

// PersistenceError is what the controller surfaces when a write fails
type PersistenceError struct {
	Action string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Action, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
