package web

import (
	"sync"

	"github.com/vaultecki/py-positioning-stuff/internal/track"
)

// Broadcaster fans committed fixes out to any listeners (websocket
// clients). It keeps the most recent fix so new subscribers get an
// immediate sample. It implements track.Sink; slow subscribers miss
// fixes rather than blocking the pipeline.
type Broadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan track.Fix
	nextID   int
	last     track.Fix
	haveLast bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan track.Fix)}
}

// OnFix publishes a committed fix to all subscribers.
func (b *Broadcaster) OnFix(fix track.Fix) {
	b.mu.RLock()
	subs := make([]chan track.Fix, 0, len(b.subs))
	for _, ch := range b.subs {
		subs = append(subs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- fix:
		default:
		}
	}

	b.mu.Lock()
	b.last = fix
	b.haveLast = true
	b.mu.Unlock()
}

// Subscribe registers a listener and returns its id and channel. The
// most recent fix, when any, is delivered immediately.
func (b *Broadcaster) Subscribe(buffer int) (int, <-chan track.Fix) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan track.Fix, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	last := b.last
	have := b.haveLast
	b.mu.Unlock()
	if have {
		select {
		case ch <- last:
		default:
		}
	}
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}
