package binder

import (
	"net"
	"unsafe"

	"github.com/ishidawataru/sctp"
	"golang.org/x/sys/unix"

	sockerr "gosock/internal/errors"
	"gosock/internal/sockaddr"
)

// sctpMaxStreams is requested for both directions via SCTP_INITMSG.
const sctpMaxStreams = 0xFFFF

// BindSCTP binds one SCTP socket to every address of an
// "addr1,addr2,...:port" spec using sctp_bindx(SCTP_BINDX_ADD_ADDR),
// raises the stream limits and listens.
func (b *Binder) BindSCTP(name string, backlog int) (int, error) {
	addrs, port, err := sockaddr.ParseSCTP(name)
	if err != nil {
		return -1, sockerr.Fatal("bindx", name, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_SCTP)
	if err != nil {
		return -1, sockerr.Fatal("socket", name, err)
	}

	laddr := &sctp.SCTPAddr{Port: int(port)}
	for _, a := range addrs {
		ip := a.As4()
		laddr.IPAddrs = append(laddr.IPAddrs, net.IPAddr{IP: net.IP(ip[:])})
	}
	b.Logger.Info("binding on %d SCTP interfaces on port: %d", len(addrs), port)

	if err := sctp.SCTPBind(fd, laddr, sctp.SCTP_BINDX_ADD_ADDR); err != nil {
		unix.Close(fd)
		return -1, sockerr.Fatal("sctp_bindx", name, err)
	}

	initmsg := sctp.InitMsg{NumOstreams: sctpMaxStreams, MaxInstreams: sctpMaxStreams}
	if _, _, e := unix.Syscall6(unix.SYS_SETSOCKOPT, uintptr(fd), uintptr(sctp.SOL_SCTP), uintptr(sctp.SCTP_INITMSG),
		uintptr(unsafe.Pointer(&initmsg)), unsafe.Sizeof(initmsg), 0); e != 0 {
		b.Logger.Error("setsockopt(SCTP_INITMSG) %s: %v", name, e)
	}

	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, sockerr.Fatal("listen", name, err)
	}
	return fd, nil
}
