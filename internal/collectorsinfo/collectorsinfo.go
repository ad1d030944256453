// Package collectorsinfo records the collection interval announced for each
// collector type and reports it as SystemInformation extra details.
package collectorsinfo

import (
	"strconv"
	"time"

	"github.com/Guliveer/vitalis/secagent/internal/collector"
	"github.com/Guliveer/vitalis/secagent/internal/models"
	"github.com/Guliveer/vitalis/secagent/internal/notifier"
)

type entry struct {
	known    bool
	interval time.Duration
}

// Info is a notifier subscriber. It is not safe for concurrent use.
type Info struct {
	intervals [collector.NumPriorities]time.Duration
	entries   [collector.NumTypes]entry

	n   *notifier.Notifier
	sub *notifier.Subscription
}

// New subscribes to the system topic of n. intervals maps each priority to
// its collection interval.
func New(n *notifier.Notifier, intervals [collector.NumPriorities]time.Duration) (*Info, error) {
	info := &Info{intervals: intervals, n: n}
	sub, err := n.Subscribe(notifier.TopicSystem, info.handle)
	if err != nil {
		return nil, err
	}
	info.sub = sub
	return info, nil
}

func (i *Info) handle(msg notifier.Message, payload any) {
	if msg != notifier.MessageSystemConfiguration {
		return
	}
	a, ok := payload.(collector.Announcement)
	if !ok || !a.Type.Valid() || !a.Priority.Valid() {
		return
	}
	i.entries[a.Type] = entry{known: true, interval: i.intervals[a.Priority]}
}

// Interval returns the recorded interval of t.
func (i *Info) Interval(t collector.Type) (time.Duration, bool) {
	if !t.Valid() || !i.entries[t].known {
		return 0, false
	}
	return i.entries[t].interval, true
}

// AppendTo adds one "<collector name>": "<interval seconds>" pair per known
// type, in type order, after the entries already in d. Pairs that do not fit
// are left out.
func (i *Info) AppendTo(d *models.ExtraDetails) {
	if d == nil {
		return
	}
	for t, e := range i.entries {
		if !e.known {
			continue
		}
		secs := strconv.FormatInt(int64(e.interval/time.Second), 10)
		if !d.Add(collector.Type(t).String(), secs) {
			return
		}
	}
}

// Close unsubscribes from the notifier.
func (i *Info) Close() error {
	if i.sub == nil {
		return nil
	}
	err := i.n.Unsubscribe(i.sub)
	i.sub = nil
	return err
}
