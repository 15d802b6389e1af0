package sockaddr

import "golang.org/x/sys/unix"

// BSD sockaddrs carry their own length byte.

func setUnixHeader(sa *unix.RawSockaddrUnix, n uint32) {
	sa.Len = uint8(n)
	sa.Family = unix.AF_UNIX
}

func setInet4Header(sa *unix.RawSockaddrInet4) {
	sa.Len = unix.SizeofSockaddrInet4
	sa.Family = unix.AF_INET
}

func rawFamily(rsa *unix.RawSockaddrAny) int {
	return int(rsa.Addr.Family)
}
