package domainerrors

import "strings"

// Aggregate collects failures from independent units of work that must all
// run regardless of each other's outcome (event handlers, per-key fan-out).
// It is the non-short-circuiting counterpart to ordinary error returns:
// callers Add every failure and convert to a single error at the end.
//
// The zero value is ready to use. Aggregate is not safe for concurrent Add;
// guard with a mutex when collecting from goroutines.
type Aggregate struct {
	members []error
}

// Add records a failure. Nil errors are ignored so call sites can add
// unconditionally.
func (a *Aggregate) Add(err error) {
	if err == nil {
		return
	}
	a.members = append(a.members, err)
}

// Count returns the number of collected failures.
func (a *Aggregate) Count() int {
	return len(a.members)
}

// Errors returns the collected failures in insertion order.
func (a *Aggregate) Errors() []error {
	return a.members
}

// Err returns the aggregate as an error, or nil when nothing failed.
func (a *Aggregate) Err() error {
	if len(a.members) == 0 {
		return nil
	}
	return a
}

func (a *Aggregate) Error() string {
	reasons := make([]string, 0, len(a.members))
	for _, err := range a.members {
		reasons = append(reasons, err.Error())
	}
	return strings.Join(reasons, "; ")
}
