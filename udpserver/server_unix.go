//go:build !windows

package udpserver

import "net"

// disableConnReset is a no-op outside Windows: SIO_UDP_CONNRESET is a
// Winsock-specific workaround for ICMP port-unreachable resets breaking
// reads on an unconnected UDP socket, which doesn't apply here.
func disableConnReset(conn *net.UDPConn) error {
	return nil
}
