package util

import (
	"bytes"
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"
)

// BenchmarkBidirectionalCopy_Unix measures relay throughput over a Unix
// stream socket, the common case for a local application server.
func BenchmarkBidirectionalCopy_Unix(b *testing.B) {
	ln, err := net.Listen("unix", filepath.Join(b.TempDir(), "bench.sock"))
	if err != nil {
		b.Fatal(err)
	}
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				io.Copy(c, c) //nolint:errcheck
			}(conn)
		}
	}()

	payload := bytes.Repeat([]byte("X"), DefaultBufSize)

	b.SetBytes(int64(len(payload)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		conn, err := net.Dial("unix", ln.Addr().String())
		if err != nil {
			b.Fatal(err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		BidirectionalCopy(ctx, conn, bytes.NewReader(payload), io.Discard) //nolint:errcheck
		cancel()
	}
}

func BenchmarkLogger_Filtered(b *testing.B) {
	l := NewLogger(1)
	l.SetOutput(io.Discard)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		l.Debug("socket %d inherited fd %d", i, i)
	}
}
