package editkeeper

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the wire-level error discriminator. Every failure that crosses
// the keeper boundary carries exactly one Kind.
type Kind string

const (
	// Input errors: the caller must fix the request and resend.
	KindMissingFields   Kind = "missing_fields"
	KindInvalidMode     Kind = "invalid_mode"
	KindInvalidJSON     Kind = "invalid_json"
	KindPayloadTooLarge Kind = "payload_too_large"
	KindUnknownRoot     Kind = "unknown_root"
	KindInvalidPath     Kind = "invalid_path"

	// State-mismatch errors: the caller's view of the file is wrong.
	KindFindNotFound      Kind = "find_not_found"
	KindAmbiguousMatch    Kind = "ambiguous_match"
	KindPatchDoesNotApply Kind = "patch_does_not_apply"
	KindFileNotFound      Kind = "file_not_found"

	// Concurrency errors: someone else mutated the file; re-propose.
	KindHashMismatch       Kind = "hash_mismatch"
	KindApprovalIDMismatch Kind = "approval_id_mismatch"

	// Resource limits.
	KindFileTooLarge  Kind = "file_too_large"
	KindPatchTooLarge Kind = "patch_too_large"

	// Internal consistency faults: never caller-fixable.
	KindPatchGenerationFailed Kind = "patch_generation_failed"
	KindInternal              Kind = "internal_error"
)

// Error is the keeper's single failure type. Matches and EOL are surfaced
// in the error envelope when non-zero.
type Error struct {
	Kind    Kind
	Hint    string
	Matches int
	EOL     string
	wrapped error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Hint)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.wrapped }

// E builds an Error with an optional hint.
func E(kind Kind, hint string) *Error {
	return &Error{Kind: kind, Hint: hint}
}

// Ef builds an Error with a formatted hint.
func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Hint: fmt.Sprintf(format, args...)}
}

func wrap(kind Kind, hint string, err error) *Error {
	return &Error{Kind: kind, Hint: hint, wrapped: err}
}

// AsError coerces any error into *Error, defaulting to KindInternal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Hint: err.Error(), wrapped: err}
}

// HTTPStatus maps a Kind to its conventional status code: 400 malformed
// input, 404 unknown target, 409 conflict, 413 size limit, 500 internal
// fault.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindMissingFields, KindInvalidMode, KindInvalidJSON, KindInvalidPath:
		return http.StatusBadRequest
	case KindUnknownRoot, KindFileNotFound:
		return http.StatusNotFound
	case KindFindNotFound, KindAmbiguousMatch, KindPatchDoesNotApply,
		KindHashMismatch, KindApprovalIDMismatch:
		return http.StatusConflict
	case KindPayloadTooLarge, KindFileTooLarge, KindPatchTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
