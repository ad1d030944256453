// Package source holds the concrete collectors: heartbeat, system
// information, listening ports and newly created connections. Host facts come
// from gopsutil.
package source

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/secagent/internal/collector"
	"github.com/Guliveer/vitalis/secagent/internal/models"
	"github.com/Guliveer/vitalis/secagent/internal/result"
)

// base carries the identity shared by every source.
type base struct {
	typ      collector.Type
	priority collector.Priority
	events   *models.EventPool
	logger   *zap.Logger
}

func newBase(typ collector.Type, priority collector.Priority, env collector.Env) (base, error) {
	if env.Events == nil {
		return base{}, fmt.Errorf("%s: no event pool: %w", typ, result.ErrBadArgument)
	}
	logger := env.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{
		typ:      typ,
		priority: priority,
		events:   env.Events,
		logger:   logger.Named(typ.String()),
	}, nil
}

func (b *base) Name() string                 { return b.typ.String() }
func (b *base) Type() collector.Type         { return b.typ }
func (b *base) Priority() collector.Priority { return b.priority }
func (b *base) Deinit()                      {}

func (b *base) newEvent(category string) (*models.Event, error) {
	return b.events.New(models.Header{
		Name:                 b.typ.String(),
		PayloadSchemaVersion: models.PayloadSchemaVersion,
		Category:             category,
		EventType:            models.EventTypeSecurity,
	})
}

// packer spreads payload items over as many events as needed.
type packer struct {
	b        *base
	sink     collector.Sink
	category string
	cur      *models.Event
	skipped  int
}

// add appends item to the open event, pushing it and opening a new one when
// it is full. An item too large for an empty event is skipped.
func (p *packer) add(item any) error {
	if p.cur == nil {
		e, err := p.b.newEvent(p.category)
		if err != nil {
			return err
		}
		p.cur = e
	}
	err := p.cur.AppendPayload(item)
	if err == nil || !errors.Is(err, result.ErrException) {
		return err
	}
	if p.cur.Items() == 0 {
		p.skipped++
		return nil
	}
	if err := p.flush(); err != nil {
		return err
	}
	return p.add(item)
}

// flush pushes the open event, if it carries anything.
func (p *packer) flush() error {
	e := p.cur
	p.cur = nil
	if e == nil {
		return nil
	}
	if e.Items() == 0 {
		e.Release()
		return nil
	}
	return p.sink.Push(e)
}

// abort releases the open event without pushing it.
func (p *packer) abort() {
	p.cur.Release()
	p.cur = nil
}
