package binder

import (
	sockerr "gosock/internal/errors"
)

// BindSCTP is not available on this platform.
func (b *Binder) BindSCTP(name string, _ int) (int, error) {
	return -1, sockerr.Recoverable("socket", name, sockerr.ErrUnsupported)
}
