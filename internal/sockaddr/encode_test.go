//go:build linux || freebsd

package sockaddr

import (
	"net/netip"
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
	"pgregory.net/rapid"

	sockerr "gosock/internal/errors"
)

func rawUnix(r *Raw) *unix.RawSockaddrUnix {
	return (*unix.RawSockaddrUnix)(r.Pointer())
}

func rawInet4(r *Raw) *unix.RawSockaddrInet4 {
	return (*unix.RawSockaddrInet4)(r.Pointer())
}

func pathBytes(sa *unix.RawSockaddrUnix, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(sa.Path[i])
	}
	return b
}

func TestEncodeUnix_Path(t *testing.T) {
	r, err := EncodeUnix("/tmp/a.sock", false)
	require.NoError(t, err)
	assert.Equal(t, unixHeaderLen+uint32(len("/tmp/a.sock")), r.Len)
	assert.Equal(t, FamilyUnix, r.Family())
	assert.Equal(t, []byte("/tmp/a.sock\x00"), pathBytes(rawUnix(r), 12))
}

func TestEncodeUnix_Abstract(t *testing.T) {
	r, err := EncodeUnix("@ctl", false)
	require.NoError(t, err)
	assert.Equal(t, unixHeaderLen+4+1, r.Len)
	assert.Equal(t, []byte("\x00ctl\x00"), pathBytes(rawUnix(r), 5))

	// A leading NUL is the binary spelling of '@'.
	r2, err := EncodeUnix("\x00ctl", false)
	require.NoError(t, err)
	assert.Equal(t, r.Len, r2.Len)
	assert.Equal(t, pathBytes(rawUnix(r), 8), pathBytes(rawUnix(r2), 8))

	// The explicit flag shifts a plain name into the abstract namespace.
	r3, err := EncodeUnix("ctl", true)
	require.NoError(t, err)
	assert.Equal(t, unixHeaderLen+3+1, r3.Len)
	assert.Equal(t, []byte("\x00ctl"), pathBytes(rawUnix(r3), 4))
}

func TestEncodeUnix_Limits(t *testing.T) {
	_, err := EncodeUnix(strings.Repeat("x", MaxUnixNameLen), false)
	require.NoError(t, err)
	_, err = EncodeUnix("@"+strings.Repeat("x", MaxUnixNameLen-1), false)
	require.NoError(t, err)

	_, err = EncodeUnix(strings.Repeat("x", MaxUnixNameLen+1), false)
	require.ErrorIs(t, err, sockerr.ErrNameTooLong)
	assert.True(t, sockerr.IsFatal(err))

	_, err = EncodeUnix("", false)
	assert.ErrorIs(t, err, sockerr.ErrEmptySpec)
}

func TestEncodeInet4(t *testing.T) {
	r, err := EncodeInet4("192.168.1.5", 9000)
	require.NoError(t, err)
	assert.Equal(t, uint32(unix.SizeofSockaddrInet4), r.Len)
	assert.Equal(t, FamilyInet, r.Family())
	sa := rawInet4(r)
	assert.Equal(t, [4]byte{192, 168, 1, 5}, sa.Addr)
	port := (*[2]byte)(unsafe.Pointer(&sa.Port))
	assert.Equal(t, [2]byte{0x23, 0x28}, *port, "port must be big-endian")

	r, err = EncodeInet4("", 80)
	require.NoError(t, err)
	assert.Equal(t, [4]byte{}, rawInet4(r).Addr)

	_, err = EncodeInet4("localhost", 80)
	assert.ErrorIs(t, err, sockerr.ErrInvalidAddress)
	_, err = EncodeInet4("::1", 80)
	assert.ErrorIs(t, err, sockerr.ErrInvalidAddress)
}

func TestEncode_Wildcard(t *testing.T) {
	_, err := Encode(MustParse("10.*:80"))
	assert.ErrorIs(t, err, sockerr.ErrNoInterface)
}

func TestDecode(t *testing.T) {
	t.Run("unbound", func(t *testing.T) {
		var rsa unix.RawSockaddrAny
		rsa.Addr.Family = unix.AF_UNIX
		_, ok := Decode(&rsa, UnboundAddrLen)
		assert.False(t, ok)
		_, ok = Decode(&rsa, 0)
		assert.False(t, ok)
	})

	t.Run("unix path", func(t *testing.T) {
		r, err := EncodeUnix("/tmp/a.sock", false)
		require.NoError(t, err)
		a, ok := Decode((*unix.RawSockaddrAny)(r.Pointer()), r.Len+1)
		require.True(t, ok)
		assert.Equal(t, UnixAddr{Path: "/tmp/a.sock"}, a)
	})

	t.Run("unix abstract", func(t *testing.T) {
		r, err := EncodeUnix("@ctl", false)
		require.NoError(t, err)
		a, ok := Decode((*unix.RawSockaddrAny)(r.Pointer()), r.Len)
		require.True(t, ok)
		assert.Equal(t, UnixAddr{Path: "ctl", Abstract: true}, a)
	})

	t.Run("inet any", func(t *testing.T) {
		r, err := EncodeInet4("", 9000)
		require.NoError(t, err)
		a, ok := Decode((*unix.RawSockaddrAny)(r.Pointer()), r.Len)
		require.True(t, ok)
		assert.Equal(t, ":9000", a.String())
	})
}

func TestProperty_UnixEncodedLength(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[a-zA-Z0-9_./-]{1,102}`).Draw(t, "name")
		if rapid.Bool().Draw(t, "at") && len(name) > 1 {
			name = "@" + name[1:]
		}
		flag := rapid.Bool().Draw(t, "flag")
		r, err := EncodeUnix(name, flag)
		if err != nil {
			t.Fatalf("EncodeUnix(%q): %v", name, err)
		}
		abstract := flag || name[0] == '@'
		want := unixHeaderLen + uint32(len(name))
		if abstract {
			want++
		}
		if r.Len != want {
			t.Fatalf("len(%q, %v) = %d, want %d", name, flag, r.Len, want)
		}
		if abstract && rawUnix(r).Path[0] != 0 {
			t.Fatalf("abstract name %q must start with NUL", name)
		}
	})
}

func TestProperty_Inet4RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ip := netip.AddrFrom4([4]byte{
			rapid.Byte().Draw(t, "a"), rapid.Byte().Draw(t, "b"),
			rapid.Byte().Draw(t, "c"), rapid.Byte().Draw(t, "d"),
		})
		port := rapid.Uint16().Draw(t, "port")
		r, err := EncodeInet4(ip.String(), port)
		if err != nil {
			t.Fatal(err)
		}
		a, ok := Decode((*unix.RawSockaddrAny)(r.Pointer()), r.Len)
		if !ok {
			t.Fatal("decode failed")
		}
		got := a.(InetAddr)
		if got.IP != ip || got.Port != port {
			t.Fatalf("round trip %s:%d -> %s", ip, port, a)
		}
	})
}
