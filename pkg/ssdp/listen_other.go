//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package ssdp

import "net"

// listenConfig returns a plain listen config. Only one instance per host can
// bind the discovery port on these platforms.
func listenConfig() *net.ListenConfig {
	return &net.ListenConfig{}
}
