package devicecore

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a message flowing through the bus.
type Event struct {
	// Topic is the channel the event was published on. Topic names use
	// slash-separated segments like "wifi/connected" or "sysinfo/metrics".
	Topic string

	// Payload is the data associated with the event. Payload types should
	// be consistent for events within the same topic so that subscribers
	// can type-assert at the boundary.
	Payload any

	// CreatedAt is when the event was published.
	CreatedAt time.Time
}

// Handler is a subscriber callback. Handlers run during Poll, on the same
// goroutine that drives the orchestrator loop, and must not block.
type Handler func(event Event)

type subscription struct {
	id        string
	topic     string
	owner     any
	handler   Handler
	cancelled bool
}

// EventBus is a topic-keyed publish/subscribe bus with deferred dispatch and
// sticky-event replay.
//
// Publish never invokes a subscriber inline; events are queued and delivered
// during Poll, which the orchestrator calls exactly once per tick. The one
// synchronous delivery path is sticky replay at subscribe time. The bus is
// single-threaded by design: all calls must come from the goroutine that
// drives the loop. Producers on other goroutines (HTTP handlers, file
// watchers, interrupt-style callbacks) must hand off through a channel that
// a component drains in its Loop.
type EventBus struct {
	subs     map[string][]*subscription
	wildcard map[string][]*subscription
	byID     map[string]*subscription
	sticky   map[string]Event
	pending  []Event
	// pendingByTopic prevents a sticky replay at subscribe time from being
	// duplicated by a queued-but-undelivered event on the same topic.
	pendingByTopic map[string]int
	logger         Logger
	now            func() time.Time
}

// NewEventBus creates an empty bus. A nil logger is replaced with a no-op
// logger.
func NewEventBus(logger Logger) *EventBus {
	if logger == nil {
		logger = noopLogger{}
	}
	return &EventBus{
		subs:           make(map[string][]*subscription),
		wildcard:       make(map[string][]*subscription),
		byID:           make(map[string]*subscription),
		sticky:         make(map[string]Event),
		pendingByTopic: make(map[string]int),
		logger:         logger,
		now:            time.Now,
	}
}

// Subscribe registers a handler for a topic and returns the subscription ID.
// Delivery order for a topic is subscription order. Topics ending in "*"
// subscribe to every topic with the preceding prefix ("sensor/*" matches
// "sensor/temp"). Returns "" if the topic is empty or the handler is nil.
//
// owner associates the subscription with the object that created it, so the
// Registry can drop all of a component's subscriptions when the component is
// removed. Pass nil for subscriptions with no owning component.
func (b *EventBus) Subscribe(topic string, owner any, handler Handler) string {
	return b.subscribe(topic, owner, handler, false)
}

// SubscribeSticky is Subscribe plus sticky replay: if a sticky payload
// already exists for the topic, the handler is invoked with it once,
// synchronously, before SubscribeSticky returns. This is the only
// synchronous delivery path in the bus. Replay is skipped when an event for
// the topic is still queued, so a subscriber never sees the same sticky
// publish twice.
func (b *EventBus) SubscribeSticky(topic string, owner any, handler Handler) string {
	return b.subscribe(topic, owner, handler, true)
}

func (b *EventBus) subscribe(topic string, owner any, handler Handler, replayLast bool) string {
	if topic == "" || handler == nil {
		return ""
	}
	sub := &subscription{
		id:      uuid.New().String(),
		topic:   topic,
		owner:   owner,
		handler: handler,
	}
	if isWildcard(topic) {
		b.wildcard[topic] = append(b.wildcard[topic], sub)
		b.byID[sub.id] = sub
		return sub.id
	}
	b.subs[topic] = append(b.subs[topic], sub)
	b.byID[sub.id] = sub

	if replayLast {
		if last, ok := b.sticky[topic]; ok && b.pendingByTopic[topic] <= 0 {
			handler(last)
		}
	}
	return sub.id
}

// Unsubscribe removes exactly one subscription by ID. It is idempotent:
// unknown or already-removed IDs are a no-op.
func (b *EventBus) Unsubscribe(id string) {
	sub, ok := b.byID[id]
	if !ok {
		return
	}
	sub.cancelled = true
	delete(b.byID, id)
	if isWildcard(sub.topic) {
		b.wildcard[sub.topic] = removeSub(b.wildcard[sub.topic], id)
	} else {
		b.subs[sub.topic] = removeSub(b.subs[sub.topic], id)
	}
}

// UnsubscribeOwner removes every subscription belonging to owner. The
// Registry calls this when a component is removed or shut down so no
// callback into freed component state survives.
func (b *EventBus) UnsubscribeOwner(owner any) {
	if owner == nil {
		return
	}
	for id, sub := range b.byID {
		if sub.owner == owner {
			sub.cancelled = true
			delete(b.byID, id)
			if isWildcard(sub.topic) {
				b.wildcard[sub.topic] = removeSub(b.wildcard[sub.topic], id)
			} else {
				b.subs[sub.topic] = removeSub(b.subs[sub.topic], id)
			}
		}
	}
}

// Publish enqueues an event for delivery on the next Poll. Subscribers are
// never called inline. An empty topic is dropped.
func (b *EventBus) Publish(topic string, payload any) {
	if topic == "" {
		return
	}
	b.enqueue(Event{Topic: topic, Payload: payload, CreatedAt: b.now()})
}

// PublishSticky enqueues an event like Publish and additionally records the
// payload as the topic's sticky value immediately, so SubscribeSticky calls
// made before the next Poll can observe it. The bus keeps its own copy of
// the Event; callers must treat published payloads as immutable.
func (b *EventBus) PublishSticky(topic string, payload any) {
	if topic == "" {
		return
	}
	ev := Event{Topic: topic, Payload: payload, CreatedAt: b.now()}
	b.sticky[topic] = ev
	b.enqueue(ev)
}

// StickyPayload returns the most recent sticky payload for a topic, if any.
func (b *EventBus) StickyPayload(topic string) (any, bool) {
	ev, ok := b.sticky[topic]
	return ev.Payload, ok
}

// Poll drains the entire pending queue in FIFO order. For each event, every
// currently-registered subscriber for its topic is invoked in subscription
// order. Events published from inside a callback are appended to the queue
// and delivered in the same Poll call (drain-to-empty). The queue is
// unbounded: a subscriber that republishes on every delivery will keep Poll
// busy forever, and avoiding that is the caller's responsibility.
func (b *EventBus) Poll() {
	for len(b.pending) > 0 {
		ev := b.pending[0]
		b.pending = b.pending[1:]
		if n := b.pendingByTopic[ev.Topic]; n > 1 {
			b.pendingByTopic[ev.Topic] = n - 1
		} else {
			delete(b.pendingByTopic, ev.Topic)
		}
		b.dispatch(ev)
	}
}

// PendingCount reports how many events are queued but not yet delivered.
func (b *EventBus) PendingCount() int {
	return len(b.pending)
}

// SubscriberCount reports the number of live subscriptions for an exact
// topic, not counting wildcard subscriptions.
func (b *EventBus) SubscriberCount(topic string) int {
	return len(b.subs[topic])
}

func (b *EventBus) dispatch(ev Event) {
	// Snapshot, so handlers can subscribe/unsubscribe during delivery.
	// Cancelled subscriptions are skipped even if they were snapshotted,
	// so unsubscribing in a callback stops further deliveries immediately.
	snapshot := append([]*subscription(nil), b.subs[ev.Topic]...)
	for _, sub := range snapshot {
		if sub.cancelled {
			continue
		}
		sub.handler(ev)
	}
	for pattern, subs := range b.wildcard {
		if !matchesWildcard(ev.Topic, pattern) {
			continue
		}
		snapshot = append([]*subscription(nil), subs...)
		for _, sub := range snapshot {
			if sub.cancelled {
				continue
			}
			sub.handler(ev)
		}
	}
}

func (b *EventBus) enqueue(ev Event) {
	b.pending = append(b.pending, ev)
	b.pendingByTopic[ev.Topic]++
}

func removeSub(subs []*subscription, id string) []*subscription {
	for i, s := range subs {
		if s.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

func isWildcard(topic string) bool {
	return strings.Contains(topic, "*")
}

// matchesWildcard matches a concrete topic against a prefix pattern like
// "sensor/*". A pattern with characters after the star requires the topic
// to carry that suffix as well.
func matchesWildcard(topic, pattern string) bool {
	star := strings.IndexByte(pattern, '*')
	if star < 0 {
		return false
	}
	prefix := pattern[:star]
	if star != len(pattern)-1 {
		suffix := pattern[star+1:]
		return strings.HasPrefix(topic, prefix) && strings.HasSuffix(topic, suffix)
	}
	return strings.HasPrefix(topic, prefix)
}
