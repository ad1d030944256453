// Package notifier provides a topic based publish/subscribe hub with a fixed
// number of subscription slots.
//
// The hub is not safe for concurrent use; it is driven from the agent's
// single control loop.
package notifier

import (
	"fmt"

	"github.com/Guliveer/vitalis/secagent/internal/list"
	"github.com/Guliveer/vitalis/secagent/internal/pool"
	"github.com/Guliveer/vitalis/secagent/internal/result"
)

// Topic groups related messages.
type Topic int

const (
	TopicSystem Topic = iota
	topicCount
)

// Message identifies what was published on a topic.
type Message int

const (
	MessageSystemConfiguration Message = iota
)

// Handler receives a published message and its payload.
type Handler func(msg Message, payload any)

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	topic   Topic
	handler Handler
	node    *list.Node[*Subscription]
}

// Notifier dispatches published messages to subscribed handlers.
type Notifier struct {
	slots  *pool.Pool[Subscription]
	topics [topicCount]*list.List[*Subscription]
}

// New creates a notifier with entries subscription slots shared by all topics.
func New(entries int) *Notifier {
	n := &Notifier{slots: pool.New[Subscription](entries, nil)}
	for i := range n.topics {
		n.topics[i] = list.New[*Subscription](entries, nil)
	}
	return n
}

func validTopic(t Topic) bool { return t >= 0 && t < topicCount }

// Subscribe registers h on topic.
func (n *Notifier) Subscribe(topic Topic, h Handler) (*Subscription, error) {
	if !validTopic(topic) {
		return nil, fmt.Errorf("subscribe: topic %d: %w", topic, result.ErrBadArgument)
	}
	if h == nil {
		return nil, fmt.Errorf("subscribe: nil handler: %w", result.ErrBadArgument)
	}
	s, err := n.slots.Get()
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	node, err := n.topics[topic].AddLast(s)
	if err != nil {
		_ = n.slots.Free(s)
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	*s = Subscription{topic: topic, handler: h, node: node}
	return s, nil
}

// Unsubscribe removes a subscription and frees its slot.
func (n *Notifier) Unsubscribe(s *Subscription) error {
	if s == nil || !n.slots.Owns(s) || s.node == nil {
		return fmt.Errorf("unsubscribe: unknown subscription: %w", result.ErrBadArgument)
	}
	if _, err := n.topics[s.topic].Remove(s.node); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	*s = Subscription{}
	return n.slots.Free(s)
}

// Notify publishes msg on topic and returns how many handlers received it.
func (n *Notifier) Notify(topic Topic, msg Message, payload any) (int, error) {
	if !validTopic(topic) {
		return 0, fmt.Errorf("notify: topic %d: %w", topic, result.ErrBadArgument)
	}
	count := 0
	n.topics[topic].Foreach(func(s *Subscription) {
		s.handler(msg, payload)
		count++
	})
	return count, nil
}

// Deinit drops every subscription.
func (n *Notifier) Deinit() {
	for _, subs := range n.topics {
		for !subs.IsEmpty() {
			s, err := subs.RemoveFirst()
			if err != nil {
				break
			}
			*s = Subscription{}
			_ = n.slots.Free(s)
		}
	}
}

// Subscribers returns the number of active subscriptions on topic.
func (n *Notifier) Subscribers(topic Topic) int {
	if !validTopic(topic) {
		return 0
	}
	return n.topics[topic].Len()
}
