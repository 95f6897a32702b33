//go:build !unix

package server

import "net"

// listen falls back to net.Listen where raw sockets are unavailable; the
// backlog is left to the system.
func listen(addr string, _ int) (net.Listener, error) {
	return net.Listen("tcp4", addr)
}
