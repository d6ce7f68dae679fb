package domain

import "errors"

// Sentinel errors for the kind taxonomy in spec §7. Call sites wrap these
// with fmt.Errorf("...: %w", ErrX) and callers distinguish them with
// errors.Is, never by string matching.
var (
	// ErrSchemaViolation means Store data contradicts an invariant, e.g. a
	// channel has one of its two roles bound but not the other.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrRemoteNotFound means a recorded remote id no longer exists on the
	// Chat Platform. Handled transparently by reconcile.Ensure's repair step.
	ErrRemoteNotFound = errors.New("remote resource not found")

	// ErrRaceConflict means a transaction's retry budget was exhausted, or a
	// concurrent writer bound a different id to the same slot.
	ErrRaceConflict = errors.New("race conflict")

	// ErrPermissionDenied means the command issuer lacks the required role.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrParse means user input or stored data failed to parse.
	ErrParse = errors.New("parse error")

	// ErrUpstream means a Store, Chat Platform, or Event-Source call failed.
	ErrUpstream = errors.New("upstream failure")

	// ErrTimeout means an async task exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrAlreadyLinkedSelf means the calling user already has a link bound.
	ErrAlreadyLinkedSelf = errors.New("already linked to this account")

	// ErrAlreadyLinkedOther means the target event-source id is already
	// bound to a different chat user.
	ErrAlreadyLinkedOther = errors.New("already linked to a different account")
)
