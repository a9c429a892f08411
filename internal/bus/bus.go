// Package bus implements the append-only activity log and its fan-out to
// live subscribers. The bus holds no campaign logic; it only orders,
// retains, and broadcasts events.
package bus

import (
	"sync"
	"sync/atomic"
	"time"

	"swarmpilot/pkg/models"
)

const (
	// DefaultHistory is how many recent events the bus retains for
	// late-joining observers.
	DefaultHistory = 512

	// DefaultSubscriberBuffer is the per-subscriber channel capacity. A
	// subscriber that falls further behind than this loses events, but
	// only for itself.
	DefaultSubscriberBuffer = 64
)

// Bus is an in-process activity event log with per-subscriber fan-out.
type Bus struct {
	mu      sync.Mutex
	seq     uint64
	history []models.ActivityEvent
	maxHist int
	subs    map[uint64]*Subscription
	nextSub uint64
}

// Subscription is one observer's private view of the live stream. Events
// arrive on C in publish order; Close releases the subscription.
type Subscription struct {
	C chan models.ActivityEvent

	id         uint64
	campaignID string
	bus        *Bus
	dropped    atomic.Uint64
	closed     bool
}

// New creates a Bus retaining up to DefaultHistory events.
func New() *Bus {
	return NewWithHistory(DefaultHistory)
}

// NewWithHistory creates a Bus with a custom history size.
func NewWithHistory(maxHist int) *Bus {
	if maxHist < 1 {
		maxHist = 1
	}
	return &Bus{
		maxHist: maxHist,
		subs:    make(map[uint64]*Subscription),
	}
}

// Publish appends an event to the log and broadcasts it. The bus assigns
// the sequence number and timestamp; the returned copy carries both.
// Delivery to a subscriber whose buffer is full is dropped for that
// subscriber only.
func (b *Bus) Publish(event models.ActivityEvent) models.ActivityEvent {
	b.mu.Lock()
	b.seq++
	event.Seq = b.seq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.history = append(b.history, event)
	if len(b.history) > b.maxHist {
		b.history = b.history[len(b.history)-b.maxHist:]
	}

	for _, sub := range b.subs {
		if sub.campaignID != "" && sub.campaignID != event.CampaignID {
			continue
		}
		select {
		case sub.C <- event:
		default:
			sub.dropped.Add(1)
		}
	}
	b.mu.Unlock()

	return event
}

// Subscribe registers a live observer. An empty campaignID receives every
// event; otherwise only events for that campaign are delivered. The stream
// starts at the next published event; use Snapshot to catch up on history.
func (b *Bus) Subscribe(campaignID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSub++
	sub := &Subscription{
		C:          make(chan models.ActivityEvent, DefaultSubscriberBuffer),
		id:         b.nextSub,
		campaignID: campaignID,
		bus:        b,
	}
	b.subs[sub.id] = sub
	return sub
}

// Snapshot returns up to limit of the most recent events, oldest first.
func (b *Bus) Snapshot(limit int) []models.ActivityEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if limit <= 0 || limit > len(b.history) {
		limit = len(b.history)
	}
	out := make([]models.ActivityEvent, limit)
	copy(out, b.history[len(b.history)-limit:])
	return out
}

// Dropped reports how many events this subscriber has lost to a full buffer.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	delete(s.bus.subs, s.id)
	close(s.C)
}
