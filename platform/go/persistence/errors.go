package persistence

import "fmt"

// ConnectionError reports that a school's database could not be reached or
// did not become ready within the dial timeout.
type ConnectionError struct {
	Code     string // school code as passed by the caller
	Database string // resolved database name
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect school %q (database %s): %v", e.Code, e.Database, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SequenceError reports that a counter allocation failed even after the
// single self-heal retry. Callers must abort the entity-creation flow; the
// allocator never hands out a zero or duplicate value on error.
type SequenceError struct {
	Code   string
	Entity string
	Err    error
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("allocate %s sequence for school %q: %v", e.Entity, e.Code, e.Err)
}

func (e *SequenceError) Unwrap() error { return e.Err }

// ProvisioningError reports a failure while bringing a school database to its
// ready state. Provisioning is idempotent, so re-invoking it for the same
// school is the recovery path.
type ProvisioningError struct {
	Code       string
	Collection string
	Err        error
}

func (e *ProvisioningError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("provision school %q: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("provision school %q (collection %s): %v", e.Code, e.Collection, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }
