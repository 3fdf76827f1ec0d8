package assign

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for the assignment pipeline.
//
// Callers distinguish outcomes with errors.Is. Structured errors below
// (RecordError, CapacityError) unwrap to one of these.
var (
	// ErrInputInvalid is returned for malformed roster records.
	ErrInputInvalid = errors.New("invalid input record")

	// ErrUnknownPreference is returned when a preference token matches no slot group.
	ErrUnknownPreference = errors.New("unknown preference")

	// ErrInvalidTopology is returned when the slot topology fails validation.
	ErrInvalidTopology = errors.New("invalid slot topology")

	// ErrInfeasible is returned when no binary assignment satisfies every constraint.
	ErrInfeasible = errors.New("assignment program is infeasible")

	// ErrSolverTimeout is returned when the solver does not answer before the deadline.
	ErrSolverTimeout = errors.New("solver timed out")

	// ErrSolverUnavailable is returned when no solver is registered or the solver
	// failed for a reason other than infeasibility.
	ErrSolverUnavailable = errors.New("solver unavailable")

	// ErrSolutionShape is returned when a solution vector does not match the program layout.
	ErrSolutionShape = errors.New("solution does not match program layout")

	// ErrCapacityAccounting signals that a group assignment could not be resolved
	// to a member slot. Pooled capacity and per-slot bookkeeping disagree: this is a bug.
	ErrCapacityAccounting = errors.New("capacity accounting failure")

	// ErrAlreadyAssigned is returned when decoding into an entity that already holds slots.
	ErrAlreadyAssigned = errors.New("entity already assigned")

	// ErrAssignmentInvalid is returned by Verify when an assignment breaks a constraint.
	ErrAssignmentInvalid = errors.New("assignment violates constraints")
)

// RecordError reports a problem with a single roster record.
type RecordError struct {
	Line     int    // 1-based source line, 0 if unknown
	Identity string // best-effort name/contact for the report
	Err      error
}

func (e *RecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("record at line %d (%s): %v", e.Line, e.Identity, e.Err)
	}
	return fmt.Sprintf("record %s: %v", e.Identity, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// CapacityError carries the full decoder state at the moment a group
// assignment could not be resolved.
type CapacityError struct {
	Entity    Identity
	Group     string
	Remaining map[SlotID]int
}

func (e *CapacityError) Error() string {
	ids := make([]string, 0, len(e.Remaining))
	for id := range e.Remaining {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s=%d", id, e.Remaining[SlotID(id)])
	}
	return fmt.Sprintf("%v: no slot left in group %q for %s; remaining [%s]",
		ErrCapacityAccounting, e.Group, e.Entity, strings.Join(parts, " "))
}

func (e *CapacityError) Unwrap() error { return ErrCapacityAccounting }
