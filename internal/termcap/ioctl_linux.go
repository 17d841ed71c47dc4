//go:build linux

package termcap

import "golang.org/x/sys/unix"

const ioctlGetTermios = unix.TCGETS
