//go:build !unix && !windows

package collector

func isAccessDenied(error) bool { return false }
