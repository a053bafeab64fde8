package watch

import (
	"container/list"

	"github.com/docdexhq/docdex/internal/errors"
)

// eventQueue holds pending events with one entry per (source, path). A
// later event for the same file replaces the queued one in place, keeping
// its original position, so a burst of saves costs one slot and one flush.
// Not safe for concurrent use; the service serializes access.
type eventQueue struct {
	order    *list.List // of FileEvent
	byKey    map[string]*list.Element
	capacity int
}

func newEventQueue(capacity int) *eventQueue {
	return &eventQueue{
		order:    list.New(),
		byKey:    make(map[string]*list.Element),
		capacity: capacity,
	}
}

func eventKey(ev FileEvent) string {
	return ev.SourceID + "\x00" + ev.Path
}

// upsert queues ev or replaces the queued event for the same file. New
// files are rejected with ErrQueueFull at capacity; replacements always
// land because they consume no extra slot.
func (q *eventQueue) upsert(ev FileEvent) error {
	k := eventKey(ev)
	if el, ok := q.byKey[k]; ok {
		el.Value = ev
		return nil
	}
	if q.capacity > 0 && q.order.Len() >= q.capacity {
		return errors.ErrQueueFull
	}
	q.byKey[k] = q.order.PushBack(ev)
	return nil
}

func (q *eventQueue) len() int {
	return q.order.Len()
}

// drain removes and returns all queued events in insertion order.
func (q *eventQueue) drain() []FileEvent {
	if q.order.Len() == 0 {
		return nil
	}
	out := make([]FileEvent, 0, q.order.Len())
	for el := q.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(FileEvent))
	}
	q.order.Init()
	clear(q.byKey)
	return out
}

// removeSource drops queued events for one source and reports how many
// were dropped.
func (q *eventQueue) removeSource(sourceID string) int {
	removed := 0
	var next *list.Element
	for el := q.order.Front(); el != nil; el = next {
		next = el.Next()
		ev := el.Value.(FileEvent)
		if ev.SourceID != sourceID {
			continue
		}
		q.order.Remove(el)
		delete(q.byKey, eventKey(ev))
		removed++
	}
	return removed
}
