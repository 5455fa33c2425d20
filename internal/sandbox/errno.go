package sandbox

import (
	"github.com/stealthrocket/stablefs/internal/storage"
	"github.com/stealthrocket/wasi-go"
)

// errnos translates storage errors to WASI errno values.
var errnos = [storage.NumErrors]wasi.Errno{
	0:                                     wasi.ESUCCESS,
	storage.ErrTooBig:                     wasi.E2BIG,
	storage.ErrAccess:                     wasi.EACCES,
	storage.ErrAddressInUse:               wasi.EADDRINUSE,
	storage.ErrAddressNotAvailable:        wasi.EADDRNOTAVAIL,
	storage.ErrAddressFamilyNotSupported:  wasi.EAFNOSUPPORT,
	storage.ErrAgain:                      wasi.EAGAIN,
	storage.ErrAlready:                    wasi.EALREADY,
	storage.ErrBadDescriptor:              wasi.EBADF,
	storage.ErrBadMessage:                 wasi.EBADMSG,
	storage.ErrBusy:                       wasi.EBUSY,
	storage.ErrCanceled:                   wasi.ECANCELED,
	storage.ErrNoChild:                    wasi.ECHILD,
	storage.ErrConnectionAborted:          wasi.ECONNABORTED,
	storage.ErrConnectionRefused:          wasi.ECONNREFUSED,
	storage.ErrConnectionReset:            wasi.ECONNRESET,
	storage.ErrDeadlock:                   wasi.EDEADLK,
	storage.ErrDestinationAddressRequired: wasi.EDESTADDRREQ,
	storage.ErrDomain:                     wasi.EDOM,
	storage.ErrQuota:                      wasi.EDQUOT,
	storage.ErrExist:                      wasi.EEXIST,
	storage.ErrFault:                      wasi.EFAULT,
	storage.ErrFileTooLarge:               wasi.EFBIG,
	storage.ErrHostUnreachable:            wasi.EHOSTUNREACH,
	storage.ErrIdentifierRemoved:          wasi.EIDRM,
	storage.ErrIllegalSequence:            wasi.EILSEQ,
	storage.ErrInProgress:                 wasi.EINPROGRESS,
	storage.ErrInterrupted:                wasi.EINTR,
	storage.ErrInvalid:                    wasi.EINVAL,
	storage.ErrIO:                         wasi.EIO,
	storage.ErrIsConnected:                wasi.EISCONN,
	storage.ErrIsDirectory:                wasi.EISDIR,
	storage.ErrLoop:                       wasi.ELOOP,
	storage.ErrTooManyFiles:               wasi.EMFILE,
	storage.ErrTooManyLinks:               wasi.EMLINK,
	storage.ErrMessageSize:                wasi.EMSGSIZE,
	storage.ErrMultihop:                   wasi.EMULTIHOP,
	storage.ErrNameTooLong:                wasi.ENAMETOOLONG,
	storage.ErrNetworkDown:                wasi.ENETDOWN,
	storage.ErrNetworkReset:               wasi.ENETRESET,
	storage.ErrNetworkUnreachable:         wasi.ENETUNREACH,
	storage.ErrFileTableOverflow:          wasi.ENFILE,
	storage.ErrNoBufferSpace:              wasi.ENOBUFS,
	storage.ErrNoDevice:                   wasi.ENODEV,
	storage.ErrNotExist:                   wasi.ENOENT,
	storage.ErrNoExec:                     wasi.ENOEXEC,
	storage.ErrNoLock:                     wasi.ENOLCK,
	storage.ErrNoLink:                     wasi.ENOLINK,
	storage.ErrNoMemory:                   wasi.ENOMEM,
	storage.ErrNoMessage:                  wasi.ENOMSG,
	storage.ErrNoProtocolOption:           wasi.ENOPROTOOPT,
	storage.ErrNoSpace:                    wasi.ENOSPC,
	storage.ErrNotImplemented:             wasi.ENOSYS,
	storage.ErrNotConnected:               wasi.ENOTCONN,
	storage.ErrNotDirectory:               wasi.ENOTDIR,
	storage.ErrNotEmpty:                   wasi.ENOTEMPTY,
	storage.ErrNotRecoverable:             wasi.ENOTRECOVERABLE,
	storage.ErrNotSocket:                  wasi.ENOTSOCK,
	storage.ErrNotSupported:               wasi.ENOTSUP,
	storage.ErrNoTTY:                      wasi.ENOTTY,
	storage.ErrNoSuchDeviceOrAddress:      wasi.ENXIO,
	storage.ErrOverflow:                   wasi.EOVERFLOW,
	storage.ErrOwnerDead:                  wasi.EOWNERDEAD,
	storage.ErrPermission:                 wasi.EPERM,
	storage.ErrBrokenPipe:                 wasi.EPIPE,
	storage.ErrProtocol:                   wasi.EPROTO,
	storage.ErrProtocolNotSupported:       wasi.EPROTONOSUPPORT,
	storage.ErrProtocolType:               wasi.EPROTOTYPE,
	storage.ErrRange:                      wasi.ERANGE,
	storage.ErrReadOnly:                   wasi.EROFS,
	storage.ErrInvalidSeek:                wasi.ESPIPE,
	storage.ErrNoProcess:                  wasi.ESRCH,
	storage.ErrStale:                      wasi.ESTALE,
	storage.ErrTimedOut:                   wasi.ETIMEDOUT,
	storage.ErrTextBusy:                   wasi.ETXTBSY,
	storage.ErrCrossDevice:                wasi.EXDEV,
	storage.ErrNotCapable:                 wasi.ENOTCAPABLE,
}

// The table above has one entry per storage error; adding an error to the
// storage package breaks the build until it is given an errno here.
const (
	_ = uint(storage.NumErrors) - 77
	_ = 77 - uint(storage.NumErrors)
)

// Errno returns the WASI errno reporting err. Errors which do not originate
// from the storage layer are reported as EIO.
func Errno(err error) wasi.Errno {
	if err == nil {
		return wasi.ESUCCESS
	}
	e, _ := storage.AsError(err)
	if e == 0 || e >= storage.NumErrors {
		return wasi.EIO
	}
	return errnos[e]
}
