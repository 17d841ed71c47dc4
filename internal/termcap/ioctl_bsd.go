//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package termcap

import "golang.org/x/sys/unix"

const ioctlGetTermios = unix.TIOCGETA
