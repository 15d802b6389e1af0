//go:build linux

package registry

import (
	"bytes"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"gosock/config"
	"gosock/internal/binder"
	"gosock/internal/rawsock"
	"gosock/internal/sockaddr"
	"gosock/util"
)

func TestMatchAddr(t *testing.T) {
	tests := []struct {
		name string
		addr sockaddr.Addr
		want bool
	}{
		{"/tmp/a.sock", sockaddr.UnixAddr{Path: "/tmp/a.sock"}, true},
		{"/tmp/b.sock", sockaddr.UnixAddr{Path: "/tmp/a.sock"}, false},
		{"@ctl", sockaddr.UnixAddr{Path: "ctl", Abstract: true}, true},
		{"@ctl", sockaddr.UnixAddr{Path: "ctl2", Abstract: true}, false},
		{"@ctl", sockaddr.UnixAddr{Path: "@ctl"}, true},
		{":9000", sockaddr.InetAddr{IP: netip.IPv4Unspecified(), Port: 9000}, true},
		{"0.0.0.0:9000", sockaddr.InetAddr{IP: netip.IPv4Unspecified(), Port: 9000}, false},
		{":9000", sockaddr.InetAddr{IP: netip.MustParseAddr("127.0.0.1"), Port: 9000}, false},
		{"127.0.0.1:9000", sockaddr.InetAddr{IP: netip.MustParseAddr("127.0.0.1"), Port: 9000}, true},
		{"127.0.0.1:9001", sockaddr.InetAddr{IP: netip.MustParseAddr("127.0.0.1"), Port: 9000}, false},
		{"192.168.*:9000", sockaddr.InetAddr{IP: netip.MustParseAddr("192.168.1.5"), Port: 9000}, true},
		{"192.168.*:9000", sockaddr.InetAddr{IP: netip.MustParseAddr("10.0.0.1"), Port: 9000}, false},
		// Prefix comparison stops at '*', as configured.
		{"1.2*:80", sockaddr.InetAddr{IP: netip.MustParseAddr("1.23.0.1"), Port: 443}, true},
		{"/tmp/a.sock", sockaddr.InetAddr{IP: netip.IPv4Unspecified(), Port: 9000}, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s~%s", tt.name, tt.addr), func(t *testing.T) {
			assert.Equal(t, tt.want, matchAddr(tt.name, tt.addr))
		})
	}
}

func testBinder() *binder.Binder {
	l := util.NewLogger(0)
	l.SetOutput(&bytes.Buffer{})
	return binder.New(config.Default(), l, nil)
}

func TestInherit_Unix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.sock")
	fd, err := testBinder().BindUnix(path, 8, false)
	require.NoError(t, err)
	defer unix.Close(fd)

	var logs bytes.Buffer
	logger := util.NewLogger(1)
	logger.SetOutput(&logs)
	r := New(logger)
	other := r.Add(sockaddr.MustParse(filepath.Join(filepath.Dir(path), "b.sock")))
	e := r.Add(sockaddr.MustParse(path))

	assert.False(t, r.Inherit(other, fd))
	assert.False(t, other.Bound())

	require.True(t, r.Inherit(e, fd))
	assert.True(t, e.Bound())
	assert.Equal(t, fd, e.FD())
	assert.Equal(t, sockaddr.FamilyUnix, e.Family())
	assert.Contains(t, logs.String(), fmt.Sprintf("socket 1 inherited UNIX address %s fd %d", path, fd))
}

func TestInherit_Abstract(t *testing.T) {
	name := fmt.Sprintf("@gosock-inh-%d-%d", os.Getpid(), time.Now().UnixNano())
	fd, err := testBinder().BindUnix(name, 8, false)
	require.NoError(t, err)
	defer unix.Close(fd)

	r := New(nil)
	e := r.Add(sockaddr.MustParse(name))
	assert.True(t, r.Inherit(e, fd))
}

func TestInherit_InetAny(t *testing.T) {
	fd, err := testBinder().BindTCP(sockaddr.MustParse(":0"), 8)
	require.NoError(t, err)
	defer unix.Close(fd)
	addr, _, err := rawsock.LocalAddr(fd)
	require.NoError(t, err)
	port := addr.(sockaddr.InetAddr).Port

	r := New(nil)
	e := r.Add(sockaddr.MustParse(fmt.Sprintf(":%d", port)))
	require.True(t, r.Inherit(e, fd))
	assert.Equal(t, sockaddr.FamilyInet, e.Family())
}

func TestInherit_Unbound(t *testing.T) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fd)

	r := New(nil)
	e := r.Add(sockaddr.MustParse("/tmp/a.sock"))
	assert.False(t, r.Inherit(e, fd))
	assert.Equal(t, -1, e.FD())
}

func TestInherit_BadFD(t *testing.T) {
	r := New(nil)
	e := r.Add(sockaddr.MustParse(":80"))
	assert.False(t, r.Inherit(e, -1))
}

func TestReconcile(t *testing.T) {
	dir := t.TempDir()
	b := testBinder()
	pathA := filepath.Join(dir, "a.sock")
	pathB := filepath.Join(dir, "b.sock")
	stray := filepath.Join(dir, "stray.sock")

	fdA, err := b.BindUnix(pathA, 8, false)
	require.NoError(t, err)
	fdB, err := b.BindUnix(pathB, 8, false)
	require.NoError(t, err)
	fdStray, err := b.BindUnix(stray, 8, false)
	require.NoError(t, err)

	r := New(nil)
	eA := r.Add(sockaddr.MustParse(pathA))
	eB := r.Add(sockaddr.MustParse(pathB))
	eC := r.Add(sockaddr.MustParse(filepath.Join(dir, "c.sock")))
	defer r.CloseAll()

	unmatched := r.Reconcile([]int{fdB, fdStray, fdA})
	assert.Equal(t, []int{fdStray}, unmatched)
	unix.Close(fdStray)

	assert.Equal(t, fdA, eA.FD())
	assert.Equal(t, fdB, eB.FD())
	assert.False(t, eC.Bound())
}

func TestCloseAll(t *testing.T) {
	fd, err := testBinder().BindUnix(filepath.Join(t.TempDir(), "x.sock"), 8, false)
	require.NoError(t, err)

	r := New(nil)
	e := r.Add(sockaddr.MustParse("/unused"))
	e.SetBound(fd)
	r.Add(sockaddr.MustParse(":1")) // never bound

	r.CloseAll()
	assert.False(t, e.Bound())
	assert.Equal(t, -1, e.FD())
	_, err = unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	assert.ErrorIs(t, err, unix.EBADF, "descriptor should be closed")
}
