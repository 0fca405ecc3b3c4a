/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvac

import (
	"fmt"
)

// Kind classifies protocol-level rejections. All kinds are recoverable by
// the caller; they report which check failed without exposing any secret
// material. The only fatal condition in this package is exhaustion of the
// randomness source, which surfaces as the adapter's own error.
type Kind int

const (
	// MalformedInput reports bad serialization, wrong-length attribute
	// vectors, or group elements that fail deserialization.
	MalformedInput Kind = iota + 1
	// ProofInvalid reports a zero-knowledge proof that fails its
	// verification equations.
	ProofInvalid
	// MacInvalid reports a keyed MAC check failure.
	MacInvalid
	// IssuanceRejected reports an issuance run aborted by either party.
	IssuanceRejected
	// KeyMismatch reports an attribute arity or key domain mismatch.
	KeyMismatch
)

func (k Kind) String() string {
	switch k {
	case MalformedInput:
		return "malformed input"
	case ProofInvalid:
		return "proof invalid"
	case MacInvalid:
		return "mac invalid"
	case IssuanceRejected:
		return "issuance rejected"
	case KeyMismatch:
		return "key mismatch"
	default:
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
}

// Kind implements error so that callers can match with errors.Is:
//
//	if errors.Is(err, kvac.ProofInvalid) { ... }
func (k Kind) Error() string {
	return k.String()
}

// Error carries the failing check alongside its kind and, when the
// failure originated in a collaborator (adapter, Schnorr package), the
// underlying cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return e.Kind == k
	}
	return false
}

func newError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}
