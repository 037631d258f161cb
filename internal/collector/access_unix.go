//go:build unix

package collector

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isAccessDenied(err error) bool {
	return errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM)
}
