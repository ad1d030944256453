package collectorsinfo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/vitalis/secagent/internal/collector"
	"github.com/Guliveer/vitalis/secagent/internal/models"
	"github.com/Guliveer/vitalis/secagent/internal/notifier"
)

var intervals = [collector.NumPriorities]time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second}

func announce(t *testing.T, n *notifier.Notifier, typ collector.Type, p collector.Priority) {
	t.Helper()
	_, err := n.Notify(notifier.TopicSystem, notifier.MessageSystemConfiguration,
		collector.Announcement{Type: typ, Priority: p})
	require.NoError(t, err)
}

func TestGatheringInfo(t *testing.T) {
	n := notifier.New(2)
	info, err := New(n, intervals)
	require.NoError(t, err)
	defer info.Close()

	announce(t, n, collector.TypeSystemInformation, collector.PriorityLow)
	announce(t, n, collector.TypeConnectionCreate, collector.PriorityHigh)
	announce(t, n, collector.TypeListeningPorts, collector.PriorityMedium)
	announce(t, n, collector.TypeHeartbeat, collector.PriorityHigh)

	d := models.NewExtraDetails(8)
	d.Add("Kernel", "6.1")
	info.AppendTo(d)

	assert.Equal(t, []models.Pair{
		{Key: "Kernel", Value: "6.1"},
		{Key: "SystemInformation", Value: "60"},
		{Key: "ConnectionCreate", Value: "10"},
		{Key: "ListeningPorts", Value: "30"},
		{Key: "Heartbeat", Value: "10"},
	}, d.Pairs())
}

func TestUpdateKeepsLatestPriority(t *testing.T) {
	n := notifier.New(1)
	info, err := New(n, intervals)
	require.NoError(t, err)

	announce(t, n, collector.TypeHeartbeat, collector.PriorityHigh)
	announce(t, n, collector.TypeHeartbeat, collector.PriorityLow)

	iv, ok := info.Interval(collector.TypeHeartbeat)
	assert.True(t, ok)
	assert.Equal(t, 60*time.Second, iv)

	d := models.NewExtraDetails(4)
	info.AppendTo(d)
	assert.Equal(t, 1, d.Len())
}

func TestInvalidAnnouncementsIgnored(t *testing.T) {
	n := notifier.New(1)
	info, err := New(n, intervals)
	require.NoError(t, err)

	announce(t, n, collector.Type(42), collector.PriorityHigh)
	announce(t, n, collector.TypeHeartbeat, collector.Priority(7))
	_, err = n.Notify(notifier.TopicSystem, notifier.MessageSystemConfiguration, nil)
	require.NoError(t, err)
	_, err = n.Notify(notifier.TopicSystem, notifier.MessageSystemConfiguration, "garbage")
	require.NoError(t, err)

	d := models.NewExtraDetails(4)
	info.AppendTo(d)
	assert.Equal(t, 0, d.Len())
	_, ok := info.Interval(collector.TypeHeartbeat)
	assert.False(t, ok)
}

func TestOverflowTruncates(t *testing.T) {
	n := notifier.New(1)
	info, err := New(n, intervals)
	require.NoError(t, err)

	for typ := collector.Type(0); int(typ) < collector.NumTypes; typ++ {
		announce(t, n, typ, collector.PriorityMedium)
	}

	d := models.NewExtraDetails(3)
	d.Add("Existing", "x")
	info.AppendTo(d)
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, "SystemInformation", d.Pairs()[1].Key)
	assert.Equal(t, "ConnectionCreate", d.Pairs()[2].Key)

	info.AppendTo(nil)
}

func TestCloseUnsubscribes(t *testing.T) {
	n := notifier.New(1)
	info, err := New(n, intervals)
	require.NoError(t, err)
	require.NoError(t, info.Close())
	assert.Equal(t, 0, n.Subscribers(notifier.TopicSystem))
	assert.NoError(t, info.Close())

	_, err = New(notifier.New(0), intervals)
	assert.Error(t, err, "no subscriber slot left")
}
