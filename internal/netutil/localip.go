// Package netutil holds small networking helpers with no state.
package netutil

import "net"

// LocalIP returns a best-effort LAN address for this host, for display in
// the startup banner. No packet is sent; dialing UDP only selects the
// outbound interface. Falls back to the loopback address.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer func() { _ = conn.Close() }()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}
