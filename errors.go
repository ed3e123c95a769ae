package rqlitec

import (
	"errors"

	"github.com/rqlitec/rqlitec/internal/rqliteerr"
)

// CanceledError reports that the caller's context fired before or during
// dispatch. Unwrap returns the original context error, so errors.Is(err,
// context.DeadlineExceeded) works across a CanceledError the same way it
// would against the bare context error.
type CanceledError = rqliteerr.Canceled

// HostsExhaustedError reports that every host in the cluster configuration
// was tried (up to the configured attempt and redirect budgets) without a
// successful response.
type HostsExhaustedError = rqliteerr.HostsExhausted

// StatementError reports that one statement within a batch failed at the
// server; Index is its zero-based position in the batch.
type StatementError = rqliteerr.SQLErr

// ServerError reports a top-level error from the server that isn't a
// per-statement failure or a stale read.
type ServerError = rqliteerr.ServerErr

// ProtocolError reports a malformed or unexpected response; it is never
// retried.
type ProtocolError = rqliteerr.ProtocolErr

// IsHostsExhausted reports whether err is, or wraps, a HostsExhaustedError.
func IsHostsExhausted(err error) bool {
	var e *HostsExhaustedError
	return errors.As(err, &e)
}

// IsCanceled reports whether err is, or wraps, a CanceledError.
func IsCanceled(err error) bool {
	var e *CanceledError
	return errors.As(err, &e)
}
