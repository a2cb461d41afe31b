// Package errs defines the error taxonomy shared by the ledger services.
//
// Every error surfaced by a service wraps exactly one kind (ErrValidation,
// ErrAccessDenied, ErrNotFound, ErrStateConflict or ErrUnauthenticated), so
// callers classify with errors.Is against the kind and never against messages.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kinds.
var (
	ErrValidation      = errors.New("validation failed")
	ErrAccessDenied    = errors.New("access denied")
	ErrNotFound        = errors.New("not found")
	ErrStateConflict   = errors.New("state conflict")
	ErrUnauthenticated = errors.New("authentication required")
)

// Specific failures. Each one unwraps to its kind.
var (
	ErrEmptySplitSet       = New(ErrValidation, "at least one participant is required")
	ErrNegativeAmount      = New(ErrValidation, "amounts cannot be negative")
	ErrSplitMismatch       = New(ErrValidation, "splits do not add up to the transaction amount")
	ErrAlreadyMember       = New(ErrStateConflict, "user is already a member of this group")
	ErrDuplicateInvitation = New(ErrStateConflict, "an invitation is already pending for this user")
	ErrInvalidState        = New(ErrStateConflict, "invitation has already been answered")
	ErrOwnerImmutable      = New(ErrStateConflict, "the group owner cannot be changed or removed")
	ErrDuplicateGroupName  = New(ErrStateConflict, "you already have a group with this name")
	ErrUserNotFound        = New(ErrNotFound, "user not found")
	ErrGroupNotFound       = New(ErrNotFound, "group not found")
	ErrTransactionNotFound = New(ErrNotFound, "transaction not found")
	ErrInvitationNotFound  = New(ErrNotFound, "invitation not found")
	ErrMemberNotFound      = New(ErrNotFound, "member not found")
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// New returns an error with the given message that matches kind under errors.Is.
func New(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}

// Newf is New with formatting.
func Newf(kind error, format string, args ...any) error {
	return &kindError{msg: fmt.Sprintf(format, args...), kind: kind}
}

// ValidationError collects every failed check of a single input so the caller
// can report them together.
type ValidationError struct {
	Problems []string
	causes   []error
}

// Add records a failed check. cause may be nil or one of the sentinels above;
// errors.Is on the ValidationError then matches it.
func (v *ValidationError) Add(cause error, msg string) {
	v.Problems = append(v.Problems, msg)
	if cause != nil {
		v.causes = append(v.causes, cause)
	}
}

// Addf is Add with formatting.
func (v *ValidationError) Addf(cause error, format string, args ...any) {
	v.Add(cause, fmt.Sprintf(format, args...))
}

// Merge folds another error into v. Nested ValidationErrors are flattened.
func (v *ValidationError) Merge(err error) {
	if err == nil {
		return
	}
	var other *ValidationError
	if errors.As(err, &other) {
		v.Problems = append(v.Problems, other.Problems...)
		v.causes = append(v.causes, other.causes...)
		return
	}
	v.Add(err, err.Error())
}

// Err returns v when at least one problem was recorded and nil otherwise.
func (v *ValidationError) Err() error {
	if len(v.Problems) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	return "validation failed: " + strings.Join(v.Problems, "; ")
}

func (v *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (v *ValidationError) Unwrap() []error {
	return v.causes
}

// Kind reports which of the five kinds err belongs to, or nil for an
// unclassified (internal) error.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrAccessDenied, ErrNotFound, ErrStateConflict, ErrUnauthenticated} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
