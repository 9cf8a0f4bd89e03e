// Package hlserrors defines the error taxonomy shared by the HLS parser
// packages and the propagation policy that decides whether a given error
// is fatal or recoverable.
package hlserrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies a class of parser error. Kinds are stable identifiers
// used by callers to branch on failure type; they are not meant to be
// parsed out of the error string.
type Kind string

// Structural errors: the playlist text itself violates the format.
const (
	MasterPlaylistNotProvided    Kind = "HLS_MASTER_PLAYLIST_NOT_PROVIDED"
	InvalidPlaylistHierarchy     Kind = "HLS_INVALID_PLAYLIST_HIERARCHY"
	EmptyMediaPlaylist           Kind = "HLS_EMPTY_MEDIA_PLAYLIST"
	RequiredTagMissing           Kind = "HLS_REQUIRED_TAG_MISSING"
	RequiredAttributeMissing     Kind = "HLS_REQUIRED_ATTRIBUTE_MISSING"
	MultipleMediaInitSections    Kind = "HLS_MULTIPLE_MEDIA_INIT_SECTIONS_FOUND"
	LiveContentNotSupported      Kind = "HLS_LIVE_CONTENT_NOT_SUPPORTED"
)

// Inference errors: the parser could not guess something it needed to.
const (
	CouldNotGuessCodecs   Kind = "HLS_COULD_NOT_GUESS_CODECS"
	CouldNotGuessMimeType Kind = "HLS_COULD_NOT_GUESS_MIME_TYPE"
)

// DRM errors.
const (
	KeyformatsNotSupported               Kind = "HLS_KEYFORMATS_NOT_SUPPORTED"
	MSEEncryptedMp2tNotSupported          Kind = "HLS_MSE_ENCRYPTED_MP2T_NOT_SUPPORTED"
	MSEEncryptedLegacyAppleKeysNotSupported Kind = "HLS_MSE_ENCRYPTED_LEGACY_APPLE_MEDIA_KEYS_NOT_SUPPORTED"
	AES128InvalidIVLength                Kind = "AES_128_INVALID_IV_LENGTH"
	AES128InvalidKeyLength                Kind = "AES_128_INVALID_KEY_LENGTH"
	NoWebCryptoAPI                        Kind = "NO_WEB_CRYPTO_API"
)

// Lifecycle errors.
const (
	OperationAborted Kind = "OPERATION_ABORTED"
)

// Severity describes how an Error should be treated by the caller.
type Severity int

const (
	// Fatal errors abort the operation that produced them (initial parse).
	Fatal Severity = iota
	// Recoverable errors are reported to the player callback and retried.
	Recoverable
)

func (s Severity) String() string {
	if s == Fatal {
		return "fatal"
	}
	return "recoverable"
}

// Error is the parser's error type. It carries a Kind for programmatic
// dispatch, a Severity that marks it fatal or recoverable for the
// caller, and wraps an underlying cause via github.com/pkg/errors so
// Cause(err) and %+v stack traces keep working for callers that use that
// package already (as ausocean-cloud does throughout cmd/oceanbench).
type Error struct {
	Kind     Kind
	Severity Severity
	cause    error
}

// New creates a fatal Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Severity: Fatal, cause: errors.Errorf(format, args...)}
}

// Wrap creates a fatal Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, msg string) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Severity: Fatal, cause: errors.Wrap(cause, msg)}
}

// AsRecoverable returns a copy of err with Severity set to Recoverable.
// Used by the update scheduler (package update) to downgrade structural
// and DRM errors encountered during a live refresh, per spec.md §7.
func AsRecoverable(err *Error) *Error {
	if err == nil {
		return nil
	}
	cp := *err
	cp.Severity = Recoverable
	return &cp
}

// Aborted reports whether err represents a canceled operation. Aborted
// errors are never reported to the player's error callback (spec.md §7).
func Aborted(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == OperationAborted
	}
	return false
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Severity, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// Cause exposes the underlying error for github.com/pkg/errors-style
// callers (errors.Cause(err)).
func (e *Error) Cause() error { return e.cause }
