package util

import "sync"

// MaxDatagramSize holds any UDP payload without truncation.
const MaxDatagramSize = 64 * 1024

// Stream copy loops and datagram loops draw from separate pools so a
// relay never holds a 64 KiB buffer it does not need.
var (
	streamPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, DefaultBufSize)
			return &buf
		},
	}
	datagramPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, MaxDatagramSize)
			return &buf
		},
	}
)

// GetBuf returns a DefaultBufSize buffer.  Return it with [PutBuf].
func GetBuf() *[]byte {
	return streamPool.Get().(*[]byte)
}

// PutBuf returns a buffer obtained from GetBuf.
func PutBuf(buf *[]byte) {
	if buf == nil || len(*buf) != DefaultBufSize {
		return
	}
	streamPool.Put(buf)
}

// GetDatagramBuf returns a MaxDatagramSize buffer.  Return it with
// [PutDatagramBuf].
func GetDatagramBuf() *[]byte {
	return datagramPool.Get().(*[]byte)
}

// PutDatagramBuf returns a buffer obtained from GetDatagramBuf.
func PutDatagramBuf(buf *[]byte) {
	if buf == nil || len(*buf) != MaxDatagramSize {
		return
	}
	datagramPool.Put(buf)
}
