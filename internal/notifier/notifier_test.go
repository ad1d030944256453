package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/vitalis/secagent/internal/result"
)

func TestNotifyReachesSubscribers(t *testing.T) {
	n := New(4)
	var got []any
	h := func(msg Message, payload any) {
		assert.Equal(t, MessageSystemConfiguration, msg)
		got = append(got, payload)
	}

	_, err := n.Subscribe(TopicSystem, h)
	require.NoError(t, err)
	_, err = n.Subscribe(TopicSystem, h)
	require.NoError(t, err)

	count, err := n.Notify(TopicSystem, MessageSystemConfiguration, "hello")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []any{"hello", "hello"}, got)
}

func TestBadTopic(t *testing.T) {
	n := New(1)
	_, err := n.Subscribe(Topic(7), func(Message, any) {})
	assert.ErrorIs(t, err, result.ErrBadArgument)

	_, err = n.Notify(Topic(-1), MessageSystemConfiguration, nil)
	assert.ErrorIs(t, err, result.ErrBadArgument)
	assert.Equal(t, 0, n.Subscribers(Topic(9)))
}

func TestSubscribeNilHandler(t *testing.T) {
	_, err := New(1).Subscribe(TopicSystem, nil)
	assert.ErrorIs(t, err, result.ErrBadArgument)
}

func TestPoolLimit(t *testing.T) {
	n := New(2)
	h := func(Message, any) {}
	_, err := n.Subscribe(TopicSystem, h)
	require.NoError(t, err)
	s, err := n.Subscribe(TopicSystem, h)
	require.NoError(t, err)

	_, err = n.Subscribe(TopicSystem, h)
	assert.ErrorIs(t, err, result.ErrMemoryException)

	require.NoError(t, n.Unsubscribe(s))
	_, err = n.Subscribe(TopicSystem, h)
	assert.NoError(t, err)
}

func TestUnsubscribe(t *testing.T) {
	n := New(2)
	calls := 0
	s, err := n.Subscribe(TopicSystem, func(Message, any) { calls++ })
	require.NoError(t, err)

	require.NoError(t, n.Unsubscribe(s))
	count, err := n.Notify(TopicSystem, MessageSystemConfiguration, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, calls)

	assert.ErrorIs(t, n.Unsubscribe(nil), result.ErrBadArgument)
	assert.ErrorIs(t, n.Unsubscribe(s), result.ErrBadArgument)
	assert.ErrorIs(t, n.Unsubscribe(&Subscription{}), result.ErrBadArgument)
}

func TestDeinit(t *testing.T) {
	n := New(3)
	for i := 0; i < 3; i++ {
		_, err := n.Subscribe(TopicSystem, func(Message, any) {})
		require.NoError(t, err)
	}
	n.Deinit()
	assert.Equal(t, 0, n.Subscribers(TopicSystem))

	_, err := n.Subscribe(TopicSystem, func(Message, any) {})
	assert.NoError(t, err)
}
