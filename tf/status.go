package tf

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHandle is returned when a handle argument does not refer to
	// a live native object (never allocated, or already deleted).
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrArityMismatch is returned when parallel array arguments have
	// inconsistent lengths.
	ErrArityMismatch = errors.New("arity mismatch")

	// ErrMalformedPayload is returned when an opaque serialized payload
	// (session config proto) could not be parsed.
	ErrMalformedPayload = errors.New("malformed config payload")

	// ErrSessionClosed is returned by Run/Extend on a session that has been
	// closed but not yet deleted.
	ErrSessionClosed = errors.New("session is closed")

	// ErrNotInitialized is returned when the TensorFlow runtime has not been
	// loaded via InitializeEnvironment.
	ErrNotInitialized = errors.New("TensorFlow runtime not initialized")
)

// StatusError carries a non-OK native status code and message verbatim.
type StatusError struct {
	Code    Code
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tensorflow: %s: %s", e.Code, e.Message)
}

// newStatus allocates a fresh TF_Status for a single native call.
func newStatus() uintptr {
	if tfNewStatusFunc == nil {
		return 0
	}
	return tfNewStatusFunc()
}

// releaseStatus frees a TF_Status. Safe on a zero handle and before the
// runtime is loaded.
func releaseStatus(status uintptr) {
	if status == 0 || tfDeleteStatusFunc == nil {
		return
	}
	tfDeleteStatusFunc(status)
}

func statusCode(status uintptr) Code {
	if status == 0 || tfGetCodeFunc == nil {
		return CodeOK
	}
	return Code(tfGetCodeFunc(status))
}

func statusMessage(status uintptr) string {
	if status == 0 || tfMessageFunc == nil {
		return ""
	}
	return tfMessageFunc(status)
}

// statusErr translates a TF_Status into an error. A nil result means the
// native call succeeded. The status object itself is not released here; call
// sites pair every newStatus with a deferred releaseStatus.
func statusErr(status uintptr) error {
	code := statusCode(status)
	if code == CodeOK {
		return nil
	}
	return &StatusError{Code: code, Message: statusMessage(status)}
}
