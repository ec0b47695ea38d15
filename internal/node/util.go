package node

import (
	"net"
	"strconv"
)

// splitHostPort parses a "host:port" string into its parts.
func splitHostPort(addr string) (host string, port int, ok bool) {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, false
	}
	portNum, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, false
	}
	return h, portNum, true
}
