package runtime

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/pkg/utils/safego"
)

// subscriberBuffer bounds the per-subscriber live channel. A slow consumer
// backpressures the publisher rather than dropping events.
const subscriberBuffer = 256

// subscriber is one live attachment to a topic. stop is closed when the
// topic finishes, done when the subscriber departs; ch itself is never
// closed, so a publish racing a topic close cannot hit a closed channel.
type subscriber struct {
	ch   chan *entity.StreamEvent
	stop chan struct{}
	done chan struct{}
}

// topic is the per-message event log plus its live subscribers.
type topic struct {
	mu        sync.Mutex
	events    []*entity.StreamEvent
	subs      map[int]*subscriber
	nextID    int
	seq       int
	closed    bool
	forgotten bool
}

// Relay fans a task's incremental output out to any number of subscribers.
//
// A subscriber attaching mid-execution first replays everything produced so
// far, then receives live increments in generation order. After the topic
// closes, a reconnect replays the full log ending in the terminal event, so
// resume is idempotent. Ordering holds per message only.
type Relay struct {
	mu     sync.RWMutex
	topics map[string]*topic
}

// NewRelay creates an empty relay.
func NewRelay() *Relay {
	return &Relay{topics: make(map[string]*topic)}
}

func (r *Relay) topicFor(messageID string) *topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.topics[messageID]
	if !ok {
		t = &topic{subs: make(map[int]*subscriber)}
		r.topics[messageID] = t
	}
	return t
}

// Publish appends one event to the message's log and delivers it to live
// subscribers. The relay assigns the per-message sequence number. Publishing
// to a forgotten message starts a fresh log, so a retried task streams from
// sequence one under the same message ID.
func (r *Relay) Publish(messageID string, ev *entity.StreamEvent) {
	t := r.topicFor(messageID)
	t.mu.Lock()
	if t.closed {
		if !t.forgotten {
			t.mu.Unlock()
			return
		}
		t.closed = false
		t.forgotten = false
		t.events = nil
		t.seq = 0
	}
	t.seq++
	ev.Seq = t.seq
	ev.MessageID = messageID
	t.events = append(t.events, ev)
	subs := make([]*subscriber, 0, len(t.subs))
	for _, s := range t.subs {
		subs = append(subs, s)
	}
	t.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		case <-s.done:
		case <-s.stop:
		}
	}
}

// CloseTopic marks the message's stream finished. The terminal event must
// already be published. Live subscribers drain and complete.
func (r *Relay) CloseTopic(messageID string) {
	t := r.topicFor(messageID)
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	subs := t.subs
	t.subs = make(map[int]*subscriber)
	t.mu.Unlock()

	for _, s := range subs {
		close(s.stop)
	}
}

// Subscribe attaches to the message's stream. The returned reader yields the
// replayed log followed by live increments, then io.EOF once the topic is
// closed. Callers must Close the reader when done.
func (r *Relay) Subscribe(ctx context.Context, messageID string) *schema.StreamReader[*entity.StreamEvent] {
	t := r.topicFor(messageID)

	t.mu.Lock()
	snapshot := make([]*entity.StreamEvent, len(t.events))
	copy(snapshot, t.events)
	var sub *subscriber
	var id int
	if !t.closed {
		sub = &subscriber{
			ch:   make(chan *entity.StreamEvent, subscriberBuffer),
			stop: make(chan struct{}),
			done: make(chan struct{}),
		}
		id = t.nextID
		t.nextID++
		t.subs[id] = sub
	}
	t.mu.Unlock()

	sr, sw := schema.Pipe[*entity.StreamEvent](subscriberBuffer)

	safego.Go(ctx, func() {
		defer sw.Close()
		defer func() {
			if sub != nil {
				t.mu.Lock()
				delete(t.subs, id)
				t.mu.Unlock()
				close(sub.done)
			}
		}()
		for _, ev := range snapshot {
			if closed := sw.Send(ev, nil); closed {
				return
			}
		}
		if sub == nil {
			return
		}
		for {
			select {
			case ev := <-sub.ch:
				if closed := sw.Send(ev, nil); closed {
					return
				}
			case <-sub.stop:
				// The topic finished; flush whatever the publisher got in
				// before the close.
				for {
					select {
					case ev := <-sub.ch:
						if closed := sw.Send(ev, nil); closed {
							return
						}
					default:
						return
					}
				}
			}
		}
	})

	return sr
}

// Forget drops a message's retained log. Used once nothing can resume it
// (message retried under a new task, session deleted). The topic stays
// behind as a closed tombstone so a late subscriber completes immediately
// instead of waiting on a stream that will never close.
func (r *Relay) Forget(messageID string) {
	t := r.topicFor(messageID)
	t.mu.Lock()
	t.closed = true
	t.forgotten = true
	t.events = nil
	subs := t.subs
	t.subs = make(map[int]*subscriber)
	t.mu.Unlock()

	for _, s := range subs {
		close(s.stop)
	}
}
