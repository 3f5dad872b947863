package tui

import (
	"sync"

	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/deepvision/internal/pipeline"
)

// DefaultFeedBuffer is the event queue length of a Feed.
const DefaultFeedBuffer = 256

// Feed forwards pipeline events to a Model.
// Events are dropped while the queue is full; the view only loses detail.
type Feed struct {
	mu     sync.RWMutex
	ch     chan model.Event
	closed bool
}

var _ pipeline.Observer = (*Feed)(nil)

// NewFeed creates a Feed with a queue of buffer events.
func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = DefaultFeedBuffer
	}
	return &Feed{ch: make(chan model.Event, buffer)}
}

// Publish implements pipeline.Observer.
func (f *Feed) Publish(ev model.Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	select {
	case f.ch <- ev:
	default:
	}
}

// Events returns the channel a Model reads.
func (f *Feed) Events() <-chan model.Event {
	return f.ch
}

// Close ends the stream; the Model quits after draining it.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}
