package store

import "fmt"

// QueryError reports query text the index could not parse. The failing
// call has no partial effect.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("bad query %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// CorruptionError reports a committed record missing a required field.
// Bulk operations abort on it rather than skipping the record, so schema
// drift never passes silently.
type CorruptionError struct {
	Reason string
}

func (e *CorruptionError) Error() string {
	return "index corruption: " + e.Reason
}
