package sandbox

import (
	"context"

	"github.com/stealthrocket/wasi-go"
	"go.uber.org/zap"
)

// UnsupportedCallError is the value of the panic raised when a guest makes a
// system call that a strict System does not implement.
type UnsupportedCallError struct {
	Name string
}

func (e *UnsupportedCallError) Error() string {
	return "unsupported system call: " + e.Name
}

func (s *System) unsupported(name string) wasi.Errno {
	s.logger.Warn("guest made an unsupported system call",
		zap.String("call", name),
		zap.Bool("strict", s.strict))
	if s.strict {
		panic(&UnsupportedCallError{Name: name})
	}
	return wasi.ENOTSUP
}

func (s *System) PathReadLink(ctx context.Context, fd wasi.FD, path string, buffer []byte) (int, wasi.Errno) {
	return 0, s.unsupported("path_readlink")
}

func (s *System) PathSymlink(ctx context.Context, oldPath string, fd wasi.FD, newPath string) wasi.Errno {
	return s.unsupported("path_symlink")
}

func (s *System) SockOpen(ctx context.Context, family wasi.ProtocolFamily, socketType wasi.SocketType, protocol wasi.Protocol, rightsBase, rightsInheriting wasi.Rights) (wasi.FD, wasi.Errno) {
	return ^wasi.FD(0), s.unsupported("sock_open")
}

func (s *System) SockBind(ctx context.Context, fd wasi.FD, addr wasi.SocketAddress) (wasi.SocketAddress, wasi.Errno) {
	return nil, s.unsupported("sock_bind")
}

func (s *System) SockConnect(ctx context.Context, fd wasi.FD, addr wasi.SocketAddress) (wasi.SocketAddress, wasi.Errno) {
	return nil, s.unsupported("sock_connect")
}

func (s *System) SockListen(ctx context.Context, fd wasi.FD, backlog int) wasi.Errno {
	return s.unsupported("sock_listen")
}

func (s *System) SockAccept(ctx context.Context, fd wasi.FD, flags wasi.FDFlags) (wasi.FD, wasi.SocketAddress, wasi.SocketAddress, wasi.Errno) {
	return ^wasi.FD(0), nil, nil, s.unsupported("sock_accept")
}

func (s *System) SockRecv(ctx context.Context, fd wasi.FD, iovecs []wasi.IOVec, flags wasi.RIFlags) (wasi.Size, wasi.ROFlags, wasi.Errno) {
	return 0, 0, s.unsupported("sock_recv")
}

func (s *System) SockSend(ctx context.Context, fd wasi.FD, iovecs []wasi.IOVec, flags wasi.SIFlags) (wasi.Size, wasi.Errno) {
	return 0, s.unsupported("sock_send")
}

func (s *System) SockSendTo(ctx context.Context, fd wasi.FD, iovecs []wasi.IOVec, flags wasi.SIFlags, addr wasi.SocketAddress) (wasi.Size, wasi.Errno) {
	return 0, s.unsupported("sock_send_to")
}

func (s *System) SockRecvFrom(ctx context.Context, fd wasi.FD, iovecs []wasi.IOVec, flags wasi.RIFlags) (wasi.Size, wasi.ROFlags, wasi.SocketAddress, wasi.Errno) {
	return 0, 0, nil, s.unsupported("sock_recv_from")
}

func (s *System) SockGetOpt(ctx context.Context, fd wasi.FD, option wasi.SocketOption) (wasi.SocketOptionValue, wasi.Errno) {
	return nil, s.unsupported("sock_getsockopt")
}

func (s *System) SockSetOpt(ctx context.Context, fd wasi.FD, option wasi.SocketOption, value wasi.SocketOptionValue) wasi.Errno {
	return s.unsupported("sock_setsockopt")
}

func (s *System) SockLocalAddress(ctx context.Context, fd wasi.FD) (wasi.SocketAddress, wasi.Errno) {
	return nil, s.unsupported("sock_getlocaladdr")
}

func (s *System) SockRemoteAddress(ctx context.Context, fd wasi.FD) (wasi.SocketAddress, wasi.Errno) {
	return nil, s.unsupported("sock_getpeeraddr")
}

func (s *System) SockAddressInfo(ctx context.Context, name, service string, hints wasi.AddressInfo, results []wasi.AddressInfo) (int, wasi.Errno) {
	return 0, s.unsupported("sock_getaddrinfo")
}

func (s *System) SockShutdown(ctx context.Context, fd wasi.FD, flags wasi.SDFlags) wasi.Errno {
	return s.unsupported("sock_shutdown")
}
