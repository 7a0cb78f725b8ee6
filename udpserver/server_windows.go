//go:build windows

package udpserver

import (
	"net"
	"unsafe"

	"golang.org/x/sys/windows"
)

// sioUDPConnReset is SIO_UDP_CONNRESET: without it, a prior ICMP
// port-unreachable from some other client can make a subsequent ReadFromUDP
// on this socket fail with WSAECONNRESET, even though the socket is
// unconnected and serving many clients.
const sioUDPConnReset = 0x9800000C

func disableConnReset(conn *net.UDPConn) error {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var ctrlErr error
	err = rawConn.Control(func(fd uintptr) {
		var flag uint32
		var bytesReturned uint32
		ctrlErr = windows.WSAIoctl(
			windows.Handle(fd),
			sioUDPConnReset,
			(*byte)(unsafe.Pointer(&flag)),
			uint32(unsafe.Sizeof(flag)),
			nil,
			0,
			&bytesReturned,
			nil,
			0,
		)
	})
	if err != nil {
		return err
	}
	return ctrlErr
}
