package utils

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// IOCtl はデバイスファイルに対して値渡しのioctlを発行する
func IOCtl(f *os.File, cmd uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), cmd, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// IOCtlPtr はカーネルが書き込む構造体へのポインタを渡してioctlを発行する
func IOCtlPtr(f *os.File, cmd uintptr, ptr unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), cmd, uintptr(ptr))
	if errno != 0 {
		return errno
	}
	return nil
}
