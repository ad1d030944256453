package source

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/secagent/internal/collector"
	"github.com/Guliveer/vitalis/secagent/internal/models"
)

type listeningPorts struct {
	base
	connections connectionsFunc
	extra       *models.ExtraDetails
}

// ListeningPorts reports every TCP socket in LISTEN and every UDP socket
// without a remote peer.
func ListeningPorts(priority collector.Priority) collector.Init {
	return func(env collector.Env) (collector.Source, error) {
		b, err := newBase(collector.TypeListeningPorts, priority, env)
		if err != nil {
			return nil, err
		}
		return &listeningPorts{
			base:        b,
			connections: net.ConnectionsWithContext,
			extra:       models.NewExtraDetails(2),
		}, nil
	}
}

func (l *listeningPorts) Collect(ctx context.Context, sink collector.Sink) error {
	conns, err := l.connections(ctx, "inet")
	if err != nil {
		return fmt.Errorf("enumerate sockets: %w", err)
	}

	p := packer{b: &l.base, sink: sink, category: models.CategoryPeriodic}
	for _, c := range conns {
		if !isListening(c) {
			continue
		}
		l.extra.Reset()
		if c.Status != "" && c.Status != "NONE" {
			l.extra.Add("State", c.Status)
		}
		if c.Pid > 0 {
			l.extra.Add("Pid", strconv.FormatInt(int64(c.Pid), 10))
		}
		item := models.ListeningPortsPayload{
			Protocol:      protocol(c),
			LocalAddress:  address(c.Laddr.IP),
			LocalPort:     port(c.Laddr.Port),
			RemoteAddress: address(c.Raddr.IP),
			RemotePort:    port(c.Raddr.Port),
		}
		if l.extra.Len() > 0 {
			item.ExtraDetails = l.extra
		}
		if err := p.add(item); err != nil {
			p.abort()
			return err
		}
	}
	if p.skipped > 0 {
		l.logger.Warn("Listening sockets too large for an event", zap.Int("skipped", p.skipped))
	}
	return p.flush()
}
