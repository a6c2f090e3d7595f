// Package herr implements the single contextual error kind described in
// spec §7: every failure the engine returns to a caller is an *Error
// carrying one of a closed set of Kinds, a message, and an optional
// wrapped cause.
package herr

import "fmt"

// Kind is the closed enumeration of error categories from spec §7.
type Kind int

// Recognized error categories (spec §7).
const (
	// Other wraps a plain I/O or syscall failure with no more specific Kind.
	Other Kind = iota
	// NoDatasets: mount parsing succeeded but found no supported filesystems.
	NoDatasets
	// NoProximateDataset: a live path is not under any known dataset or alias.
	NoProximateDataset
	// NoVersionsFound: live path missing and no snapshot candidates.
	NoVersionsFound
	// BadAliasSyntax: alias list lacked the ":" delimiter.
	BadAliasSyntax
	// PrivilegeRequired: mutating op attempted without root or zfs allow.
	PrivilegeRequired
	// SubprocessError: a helper tool returned non-empty stderr.
	SubprocessError
	// UnsupportedFileType: special file the core refuses to reproduce.
	UnsupportedFileType
	// MetadataMismatch: post-restore check failed.
	MetadataMismatch
)

func (k Kind) String() string {
	switch k {
	case NoDatasets:
		return "NoDatasets"
	case NoProximateDataset:
		return "NoProximateDataset"
	case NoVersionsFound:
		return "NoVersionsFound"
	case BadAliasSyntax:
		return "BadAliasSyntax"
	case PrivilegeRequired:
		return "PrivilegeRequired"
	case SubprocessError:
		return "SubprocessError"
	case UnsupportedFileType:
		return "UnsupportedFileType"
	case MetadataMismatch:
		return "MetadataMismatch"
	default:
		return "Error"
	}
}

// Error is the contextual error type with a source chain (spec §7).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New builds an *Error of the given Kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given Kind around an existing cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the source chain to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether err is an *Error of Kind k.
func Is(err error, k Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == k
}
