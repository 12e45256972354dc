package storage

import "sync"

// Broker fans out change notifications to in-process subscribers.
//
// Notifications carry no payload: a subscriber re-reads the store when
// signalled. Signals coalesce, so a slow subscriber sees the latest state once
// instead of every intermediate one, and Publish never blocks.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan struct{}]struct{}{}}
}

func TasksTopic(ownerID string) string  { return "tasks/" + ownerID }
func ProfileTopic(userID string) string { return "profile/" + userID }

// Subscribe registers interest in topic. The returned cancel func must be
// called to release the subscription; it closes the channel.
func (b *Broker) Subscribe(topic string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	set, ok := b.subs[topic]
	if !ok {
		set = map[chan struct{}]struct{}{}
		b.subs[topic] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], ch)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish signals every subscriber of topic.
func (b *Broker) Publish(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions on topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
