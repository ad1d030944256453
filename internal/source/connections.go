package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/secagent/internal/collector"
	"github.com/Guliveer/vitalis/secagent/internal/hashset"
	"github.com/Guliveer/vitalis/secagent/internal/models"
)

type connectionCreate struct {
	base
	connections connectionsFunc

	// seen holds the connections of the previous collection, current those
	// of the running one. They are swapped after each collection.
	seen, current *hashset.Set[string]
	listening     *hashset.Set[uint32]
	key           strings.Builder
}

// ConnectionCreate reports established connections that were not present at
// the previous collection. tracked bounds how many connections are
// remembered between collections.
func ConnectionCreate(priority collector.Priority, tracked int) collector.Init {
	return func(env collector.Env) (collector.Source, error) {
		b, err := newBase(collector.TypeConnectionCreate, priority, env)
		if err != nil {
			return nil, err
		}
		buckets := tracked/4 + 1
		return &connectionCreate{
			base:        b,
			connections: net.ConnectionsWithContext,
			seen:        hashset.NewString(buckets, tracked),
			current:     hashset.NewString(buckets, tracked),
			listening:   newPortSet(tracked),
		}, nil
	}
}

func (c *connectionCreate) connKey(s net.ConnectionStat) string {
	c.key.Reset()
	c.key.WriteString(protocol(s))
	c.key.WriteByte('|')
	c.key.WriteString(s.Laddr.IP)
	c.key.WriteByte(':')
	c.key.WriteString(strconv.FormatUint(uint64(s.Laddr.Port), 10))
	c.key.WriteByte('|')
	c.key.WriteString(s.Raddr.IP)
	c.key.WriteByte(':')
	c.key.WriteString(strconv.FormatUint(uint64(s.Raddr.Port), 10))
	return c.key.String()
}

func (c *connectionCreate) Collect(ctx context.Context, sink collector.Sink) error {
	conns, err := c.connections(ctx, "inet")
	if err != nil {
		return fmt.Errorf("enumerate sockets: %w", err)
	}

	c.listening.Clear()
	for _, s := range conns {
		if isListening(s) && !isUDP(s) {
			_ = c.listening.Add(s.Laddr.Port)
		}
	}

	p := packer{b: &c.base, sink: sink, category: models.CategoryAggregated}
	untracked := 0
	for _, s := range conns {
		if s.Status != statusEstablished || isUDP(s) {
			continue
		}
		key := c.connKey(s)
		if err := c.current.Add(key); err != nil {
			untracked++
		}
		if c.seen.Contains(key) {
			continue
		}
		direction := models.DirectionOut
		if c.listening.Contains(s.Laddr.Port) {
			direction = models.DirectionIn
		}
		item := models.ConnectionCreatePayload{
			LocalAddress:  address(s.Laddr.IP),
			RemoteAddress: address(s.Raddr.IP),
			Protocol:      strings.ToUpper(protocol(s)),
			LocalPort:     port(s.Laddr.Port),
			RemotePort:    port(s.Raddr.Port),
			Direction:     direction,
		}
		if err := p.add(item); err != nil {
			p.abort()
			c.rotate()
			return err
		}
	}
	c.rotate()

	if untracked > 0 {
		c.logger.Warn("Connection tracking full, connections may be reported again",
			zap.Int("untracked", untracked))
	}
	if p.skipped > 0 {
		c.logger.Warn("Connections too large for an event", zap.Int("skipped", p.skipped))
	}
	return p.flush()
}

// rotate makes the running collection the baseline for the next one.
func (c *connectionCreate) rotate() {
	c.seen, c.current = c.current, c.seen
	c.current.Clear()
}
