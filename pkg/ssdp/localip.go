package ssdp

import (
	"fmt"
	"net"
)

// LocalIPFor returns the local address the host would use to reach remote.
// It connects an unbound UDP socket toward remote:1900 and reads back the
// chosen source address. No packet is sent.
func LocalIPFor(remote net.IP) (net.IP, error) {
	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: remote, Port: Port})
	if err != nil {
		return nil, fmt.Errorf("route to %s: %w", remote, err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("route to %s: unexpected local address %v", remote, conn.LocalAddr())
	}
	return addr.IP, nil
}
