// Copyright 2025 Jelly Terra <jellyterra@symboltics.com>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies workflow and adapter failures. Values are stable, add sparingly.
type Kind uint8

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindAlreadyRegistered
	KindNotFoundOrUnauthorized
	KindProviderUnavailable
	KindProviderRejected
	KindVersionConflict
	KindLedgerUnavailable
	KindLedgerWriteFailed
	KindDNSCreateFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindAlreadyRegistered:
		return "already_registered"
	case KindNotFoundOrUnauthorized:
		return "not_found_or_unauthorized"
	case KindProviderUnavailable:
		return "provider_unavailable"
	case KindProviderRejected:
		return "provider_rejected"
	case KindVersionConflict:
		return "version_conflict"
	case KindLedgerUnavailable:
		return "ledger_unavailable"
	case KindLedgerWriteFailed:
		return "ledger_write_failed"
	case KindDNSCreateFailed:
		return "dns_create_failed"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to the status the API surfaces it with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindAlreadyRegistered, KindVersionConflict:
		return http.StatusConflict
	case KindNotFoundOrUnauthorized:
		return http.StatusNotFound
	case KindProviderUnavailable, KindLedgerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind, an optional offending field name and a wrapped cause.
// The message is safe to return to callers; provider payloads stay in the
// wrapped cause and are logged, not echoed.
type Error struct {
	Kind  Kind
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and caller-safe message to an underlying cause.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// FieldError marks a validation failure on a named input field.
func FieldError(field, msg string) *Error {
	return &Error{Kind: KindInvalidInput, Field: field, Msg: msg}
}

// ErrVersionConflict is the sentinel ledger backends return on a stale
// version token.
var ErrVersionConflict = E(KindVersionConflict, "ledger version conflict")

// KindOf extracts the kind from err, KindInternal when it carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
