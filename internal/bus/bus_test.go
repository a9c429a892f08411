package bus

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmpilot/pkg/models"
)

func TestPublishAssignsSequenceAndTimestamp(t *testing.T) {
	b := New()

	first := b.Publish(models.ActivityEvent{CampaignID: "c1", Agent: models.AgentIntent, Action: "started"})
	second := b.Publish(models.ActivityEvent{CampaignID: "c1", Agent: models.AgentIntent, Action: "completed"})

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.False(t, first.Timestamp.IsZero())
	assert.False(t, second.Timestamp.Before(first.Timestamp))
}

func TestSubscriberReceivesInPublishOrder(t *testing.T) {
	b := New()
	sub := b.Subscribe("")
	defer sub.Close()

	for i := 0; i < 10; i++ {
		b.Publish(models.ActivityEvent{CampaignID: "c1", Action: fmt.Sprintf("a%d", i)})
	}

	for i := 0; i < 10; i++ {
		select {
		case event := <-sub.C:
			assert.Equal(t, uint64(i+1), event.Seq)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestCampaignFilter(t *testing.T) {
	b := New()
	sub := b.Subscribe("c2")
	defer sub.Close()

	b.Publish(models.ActivityEvent{CampaignID: "c1", Action: "ignored"})
	b.Publish(models.ActivityEvent{CampaignID: "c2", Action: "delivered"})

	select {
	case event := <-sub.C:
		assert.Equal(t, "c2", event.CampaignID)
		assert.Equal(t, "delivered", event.Action)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for filtered event")
	}
	assert.Empty(t, sub.C)
}

func TestSlowSubscriberDropsWithoutBlockingOthers(t *testing.T) {
	b := New()
	slow := b.Subscribe("")
	defer slow.Close()
	fast := b.Subscribe("")
	defer fast.Close()

	// Never read from slow; its buffer fills and overflow is dropped for
	// it alone. Fast is drained after every publish so it never fills:
	// Publish delivers synchronously, so exactly one event is pending.
	total := DefaultSubscriberBuffer + 25
	for i := 0; i < total; i++ {
		published := b.Publish(models.ActivityEvent{CampaignID: "c1"})
		got := <-fast.C
		assert.Equal(t, published.Seq, got.Seq)
	}

	assert.Equal(t, uint64(25), slow.Dropped())
	assert.Zero(t, fast.Dropped())
}

func TestSnapshotReturnsRecentHistoryOldestFirst(t *testing.T) {
	b := NewWithHistory(5)

	for i := 0; i < 8; i++ {
		b.Publish(models.ActivityEvent{CampaignID: "c1"})
	}

	all := b.Snapshot(0)
	require.Len(t, all, 5)
	assert.Equal(t, uint64(4), all[0].Seq)
	assert.Equal(t, uint64(8), all[4].Seq)

	limited := b.Snapshot(2)
	require.Len(t, limited, 2)
	assert.Equal(t, uint64(7), limited[0].Seq)
	assert.Equal(t, uint64(8), limited[1].Seq)
}

func TestConcurrentPublishersKeepSequenceUnique(t *testing.T) {
	b := NewWithHistory(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish(models.ActivityEvent{CampaignID: "c1"})
			}
		}()
	}
	wg.Wait()

	events := b.Snapshot(0)
	require.Len(t, events, 500)
	seen := make(map[uint64]bool, len(events))
	for _, e := range events {
		assert.False(t, seen[e.Seq], "duplicate seq %d", e.Seq)
		seen[e.Seq] = true
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	b := New()
	sub := b.Subscribe("")
	sub.Close()

	// Publishing after close must not panic or deliver.
	b.Publish(models.ActivityEvent{CampaignID: "c1"})

	_, open := <-sub.C
	assert.False(t, open)
}
