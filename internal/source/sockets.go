package source

import (
	"context"
	"encoding/binary"
	"strconv"
	"syscall"

	"github.com/cespare/xxhash/v2"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/Guliveer/vitalis/secagent/internal/hashset"
)

const (
	statusListen      = "LISTEN"
	statusEstablished = "ESTABLISHED"
	wildcard          = "*"
)

// connectionsFunc enumerates sockets; net.ConnectionsWithContext in
// production.
type connectionsFunc func(ctx context.Context, kind string) ([]net.ConnectionStat, error)

func isUDP(c net.ConnectionStat) bool { return c.Type == syscall.SOCK_DGRAM }

func protocol(c net.ConnectionStat) string {
	p := "tcp"
	if isUDP(c) {
		p = "udp"
	}
	if c.Family == syscall.AF_INET6 {
		p += "6"
	}
	return p
}

// isListening reports TCP sockets in LISTEN and UDP sockets without a peer.
func isListening(c net.ConnectionStat) bool {
	if isUDP(c) {
		return c.Raddr.Port == 0
	}
	return c.Status == statusListen
}

func address(ip string) string {
	if ip == "" {
		return wildcard
	}
	return ip
}

func port(p uint32) string {
	if p == 0 {
		return wildcard
	}
	return strconv.FormatUint(uint64(p), 10)
}

func hashPort(p uint32) uint64 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], p)
	return xxhash.Sum64(b[:])
}

func newPortSet(capacity int) *hashset.Set[uint32] {
	return hashset.New[uint32](capacity/4+1, capacity, hashPort)
}
