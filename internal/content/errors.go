package content

import (
	"errors"
	"fmt"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/loader"
)

var (
	// ErrIO marks a failed filesystem read or directory enumeration.
	ErrIO = loader.ErrIO
	// ErrParse marks a file whose header or body could not be parsed.
	ErrParse = loader.ErrParse
	// ErrNotFound is returned by Get for keys absent from the store. Files
	// that failed to parse are absent too.
	ErrNotFound = fmt.Errorf("content: %w", apperr.ErrNotFound)
	// ErrDisconnected matches every protocol failure seen by a Client.
	ErrDisconnected = fmt.Errorf("content: service %w", apperr.ErrUnavailable)
	// ErrAlreadyRunning is returned by a second call to Service.Run.
	ErrAlreadyRunning = errors.New("content: service already running")
)

// RPCError is a failure in the message layer between Client and Service.
type RPCError struct {
	Op         string
	disconnect bool
}

var (
	// ErrRequestSend is returned when the request mailbox is closed.
	ErrRequestSend = &RPCError{Op: "request send", disconnect: true}
	// ErrResponseReceive is returned when the service stops without answering.
	ErrResponseReceive = &RPCError{Op: "response receive", disconnect: true}
	// ErrResponseSend is logged when a caller abandoned its reply slot.
	ErrResponseSend = &RPCError{Op: "response send"}
)

func (e *RPCError) Error() string { return "content: " + e.Op + " failed" }

// Is lets the client-facing failures match ErrDisconnected and
// apperr.ErrUnavailable.
func (e *RPCError) Is(target error) bool {
	return e.disconnect && (target == ErrDisconnected || target == apperr.ErrUnavailable)
}

// ReconcileError reports a directory that could not be enumerated.
type ReconcileError struct {
	Key string
	Err error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("content: reconcile %q: %v", e.Key, e.Err)
}

func (e *ReconcileError) Unwrap() error { return e.Err }

func (e *ReconcileError) Is(target error) bool { return target == ErrIO }
