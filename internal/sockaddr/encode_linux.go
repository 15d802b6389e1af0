package sockaddr

import "golang.org/x/sys/unix"

func setUnixHeader(sa *unix.RawSockaddrUnix, _ uint32) {
	sa.Family = unix.AF_UNIX
}

func setInet4Header(sa *unix.RawSockaddrInet4) {
	sa.Family = unix.AF_INET
}

func rawFamily(rsa *unix.RawSockaddrAny) int {
	return int(rsa.Addr.Family)
}
