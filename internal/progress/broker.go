package progress

import "sync"

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	// Notifications are dropped if a subscriber falls this far behind.
	subscriberBufferSize = 64

	// historySize is the number of recent notifications replayed to a new
	// subscriber.
	historySize = 32
)

// Broker fans notifications out to per-request subscribers.
// It is safe for concurrent use.
//
// Each topic keeps its most recent notifications and replays them to new
// subscribers, so a caller that subscribes after dispatch still sees the
// beginning of the job. Closed topics are retained so that late subscribers
// receive the history followed by a closed channel instead of blocking
// forever.
type Broker struct {
	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	subs    map[int]chan Notification
	nextID  int
	closed  bool
	history []Notification
}

// NewBroker creates a new broker.
func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]*topic),
	}
}

func (b *Broker) topicLocked(requestID string) *topic {
	t, ok := b.topics[requestID]
	if !ok {
		t = &topic{subs: make(map[int]chan Notification)}
		b.topics[requestID] = t
	}
	return t
}

// Open registers requestID so that Has reports it before anything is
// published.
func (b *Broker) Open(requestID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topicLocked(requestID)
}

// Has reports whether requestID has been opened, published to or closed.
func (b *Broker) Has(requestID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.topics[requestID]
	return ok
}

// Subscribe returns a channel that receives notifications for requestID and
// an unsubscribe function. Retained history is delivered first. If the topic
// is already closed, the channel is closed after the history.
func (b *Broker) Subscribe(requestID string) (<-chan Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topicLocked(requestID)

	ch := make(chan Notification, subscriberBufferSize)
	for _, n := range t.history {
		ch <- n
	}
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends n to all subscribers of requestID and reports whether the
// topic was open. Notifications are dropped for subscribers whose buffers
// are full.
func (b *Broker) Publish(requestID string, n Notification) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topicLocked(requestID)
	if t.closed {
		return false
	}

	t.history = append(t.history, n)
	if len(t.history) > historySize {
		t.history = t.history[len(t.history)-historySize:]
	}

	for _, ch := range t.subs {
		select {
		case ch <- n:
		default:
		}
	}
	return true
}

// Close signals that no more notifications will be published for requestID.
// All subscriber channels are closed and future Subscribe calls receive the
// history on an already closed channel.
func (b *Broker) Close(requestID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topicLocked(requestID)
	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}
