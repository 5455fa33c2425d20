package storage

import (
	"errors"
	"fmt"
)

// Error is the closed set of failures reported by file system operations.
//
// The set follows the POSIX error names so that every layer above the
// storage can translate it to its own error space with a table.
type Error uint8

const (
	ErrTooBig Error = iota + 1
	ErrAccess
	ErrAddressInUse
	ErrAddressNotAvailable
	ErrAddressFamilyNotSupported
	ErrAgain
	ErrAlready
	ErrBadDescriptor
	ErrBadMessage
	ErrBusy
	ErrCanceled
	ErrNoChild
	ErrConnectionAborted
	ErrConnectionRefused
	ErrConnectionReset
	ErrDeadlock
	ErrDestinationAddressRequired
	ErrDomain
	ErrQuota
	ErrExist
	ErrFault
	ErrFileTooLarge
	ErrHostUnreachable
	ErrIdentifierRemoved
	ErrIllegalSequence
	ErrInProgress
	ErrInterrupted
	ErrInvalid
	ErrIO
	ErrIsConnected
	ErrIsDirectory
	ErrLoop
	ErrTooManyFiles
	ErrTooManyLinks
	ErrMessageSize
	ErrMultihop
	ErrNameTooLong
	ErrNetworkDown
	ErrNetworkReset
	ErrNetworkUnreachable
	ErrFileTableOverflow
	ErrNoBufferSpace
	ErrNoDevice
	ErrNotExist
	ErrNoExec
	ErrNoLock
	ErrNoLink
	ErrNoMemory
	ErrNoMessage
	ErrNoProtocolOption
	ErrNoSpace
	ErrNotImplemented
	ErrNotConnected
	ErrNotDirectory
	ErrNotEmpty
	ErrNotRecoverable
	ErrNotSocket
	ErrNotSupported
	ErrNoTTY
	ErrNoSuchDeviceOrAddress
	ErrOverflow
	ErrOwnerDead
	ErrPermission
	ErrBrokenPipe
	ErrProtocol
	ErrProtocolNotSupported
	ErrProtocolType
	ErrRange
	ErrReadOnly
	ErrInvalidSeek
	ErrNoProcess
	ErrStale
	ErrTimedOut
	ErrTextBusy
	ErrCrossDevice
	ErrNotCapable

	// NumErrors is one past the largest Error value.
	NumErrors
)

var errorStrings = [NumErrors]string{
	ErrTooBig:                     "argument list too long",
	ErrAccess:                     "permission denied",
	ErrAddressInUse:               "address in use",
	ErrAddressNotAvailable:        "address not available",
	ErrAddressFamilyNotSupported:  "address family not supported",
	ErrAgain:                      "resource unavailable, try again",
	ErrAlready:                    "connection already in progress",
	ErrBadDescriptor:              "bad file descriptor",
	ErrBadMessage:                 "bad message",
	ErrBusy:                       "device or resource busy",
	ErrCanceled:                   "operation canceled",
	ErrNoChild:                    "no child processes",
	ErrConnectionAborted:          "connection aborted",
	ErrConnectionRefused:          "connection refused",
	ErrConnectionReset:            "connection reset",
	ErrDeadlock:                   "resource deadlock would occur",
	ErrDestinationAddressRequired: "destination address required",
	ErrDomain:                     "mathematics argument out of domain of function",
	ErrQuota:                      "disk quota exceeded",
	ErrExist:                      "file exists",
	ErrFault:                      "bad address",
	ErrFileTooLarge:               "file too large",
	ErrHostUnreachable:            "host is unreachable",
	ErrIdentifierRemoved:          "identifier removed",
	ErrIllegalSequence:            "illegal byte sequence",
	ErrInProgress:                 "operation in progress",
	ErrInterrupted:                "interrupted function",
	ErrInvalid:                    "invalid argument",
	ErrIO:                         "I/O error",
	ErrIsConnected:                "socket is connected",
	ErrIsDirectory:                "is a directory",
	ErrLoop:                       "too many levels of symbolic links",
	ErrTooManyFiles:               "file descriptor value too large",
	ErrTooManyLinks:               "too many links",
	ErrMessageSize:                "message too large",
	ErrMultihop:                   "multihop attempted",
	ErrNameTooLong:                "filename too long",
	ErrNetworkDown:                "network is down",
	ErrNetworkReset:               "connection aborted by network",
	ErrNetworkUnreachable:         "network unreachable",
	ErrFileTableOverflow:          "too many files open in system",
	ErrNoBufferSpace:              "no buffer space available",
	ErrNoDevice:                   "no such device",
	ErrNotExist:                   "no such file or directory",
	ErrNoExec:                     "executable file format error",
	ErrNoLock:                     "no locks available",
	ErrNoLink:                     "link has been severed",
	ErrNoMemory:                   "not enough space",
	ErrNoMessage:                  "no message of the desired type",
	ErrNoProtocolOption:           "protocol not available",
	ErrNoSpace:                    "no space left on device",
	ErrNotImplemented:             "function not supported",
	ErrNotConnected:               "the socket is not connected",
	ErrNotDirectory:               "not a directory",
	ErrNotEmpty:                   "directory not empty",
	ErrNotRecoverable:             "state not recoverable",
	ErrNotSocket:                  "not a socket",
	ErrNotSupported:               "not supported",
	ErrNoTTY:                      "inappropriate I/O control operation",
	ErrNoSuchDeviceOrAddress:      "no such device or address",
	ErrOverflow:                   "value too large to be stored in data type",
	ErrOwnerDead:                  "previous owner died",
	ErrPermission:                 "operation not permitted",
	ErrBrokenPipe:                 "broken pipe",
	ErrProtocol:                   "protocol error",
	ErrProtocolNotSupported:       "protocol not supported",
	ErrProtocolType:               "protocol wrong type for socket",
	ErrRange:                      "result too large",
	ErrReadOnly:                   "read-only file system",
	ErrInvalidSeek:                "invalid seek",
	ErrNoProcess:                  "no such process",
	ErrStale:                      "stale file handle",
	ErrTimedOut:                   "connection timed out",
	ErrTextBusy:                   "text file busy",
	ErrCrossDevice:                "cross-device link",
	ErrNotCapable:                 "capabilities insufficient",
}

func (e Error) Error() string {
	if e > 0 && e < NumErrors {
		return errorStrings[e]
	}
	return fmt.Sprintf("storage error %d", uint8(e))
}

func (e Error) String() string { return e.Error() }

// AsError extracts the storage error carried by err. Errors that do not
// originate from the storage layer (memory failures, corrupted records) are
// reported as ErrIO.
func AsError(err error) (Error, bool) {
	if err == nil {
		return 0, false
	}
	var e Error
	if errors.As(err, &e) {
		return e, true
	}
	return ErrIO, true
}

var (
	// ErrCorrupted is returned when the content of a memory cannot be
	// decoded as a store.
	ErrCorrupted = errors.New("stable store is corrupted")

	// ErrNotInitialized is returned when an operation requires a formatted
	// store but the memory is blank.
	ErrNotInitialized = errors.New("stable store is not initialized")

	// ErrMemoryFull is returned when the memory backing a log cannot grow to
	// hold a new record.
	ErrMemoryFull = errors.New("stable memory is full")
)
