package store

import "fmt"

// Kind classifies a StoreError.
type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindNotFound           Kind = "not_found"
	KindAmbiguous          Kind = "ambiguous"
	KindConflict           Kind = "conflict"
	KindInvariantViolation Kind = "invariant_violation"
	KindIO                 Kind = "io_error"
	KindProvider           Kind = "provider_error"
	KindUnknownFormat      Kind = "unknown_format"
	KindMigrationTimeout   Kind = "migration_timeout"
)

// Error is the single typed error returned across the store's public
// surface. It wraps an underlying cause (if any) with fmt's %w so callers
// can still errors.Is/errors.As through to driver-level errors.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// NotFound builds a KindNotFound error for the given identifier.
func NotFound(id string) error {
	return newErr(KindNotFound, fmt.Sprintf("conversation %q not found", id), nil)
}

// Ambiguous builds a KindAmbiguous error when an identifier prefix matches
// more than one conversation.
func Ambiguous(prefix string, matches []string) error {
	return newErr(KindAmbiguous, fmt.Sprintf("identifier %q is ambiguous (matches %v)", prefix, matches), nil)
}
