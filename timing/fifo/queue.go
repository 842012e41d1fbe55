package fifo

import (
	"github.com/sirupsen/logrus"
)

// Queue is a fixed-depth shifting queue of fetch entries.
//
// Entries are kept packed at the low end: if slot i is invalid, every slot
// above it is invalid too. Slot 0 always holds the oldest entry. The write
// pointer is therefore the number of valid entries and no head/tail indices
// are needed.
type Queue struct {
	slots []Entry
}

// NewQueue creates an empty queue with the given number of slots.
func NewQueue(depth int) *Queue {
	if depth < 2 {
		logrus.WithField("depth", depth).Panic("fifo: queue depth must be at least 2")
	}

	return &Queue{slots: make([]Entry, depth)}
}

// Depth returns the number of slots.
func (q *Queue) Depth() int {
	return len(q.slots)
}

// Slot returns a copy of slot i.
func (q *Queue) Slot(i int) Entry {
	return q.slots[i]
}

// Count returns the number of valid entries.
func (q *Queue) Count() int {
	n := 0
	for n < len(q.slots) && q.slots[n].Valid {
		n++
	}
	return n
}

// Empty returns true if slot 0 is invalid.
func (q *Queue) Empty() bool {
	return !q.slots[0].Valid
}

// Full returns true if the top slot is valid.
func (q *Queue) Full() bool {
	return q.slots[len(q.slots)-1].Valid
}

// Packed reports whether the packing invariant holds.
func (q *Queue) Packed() bool {
	seenFree := false
	for _, e := range q.slots {
		if !e.Valid {
			seenFree = true
			continue
		}
		if seenFree {
			return false
		}
	}
	return true
}

// Clear invalidates every slot.
func (q *Queue) Clear() {
	for i := range q.slots {
		q.slots[i].Clear()
	}
}

// queueUpdate holds the control signals for one queue update.
type queueUpdate struct {
	push  bool
	entry Entry
	pop   bool
	clear bool
}

// next computes the slot values after one cycle without modifying q.
//
// A push writes the lowest free slot. A pop shifts every slot down by one,
// taking the value slot i+1 holds after the push, so an entry pushed into
// slot i+1 in the same cycle lands in slot i. Clear wins over both.
func (q *Queue) next(u queueUpdate) []Entry {
	depth := len(q.slots)
	next := make([]Entry, depth)

	if u.clear {
		return next
	}

	pushed := make([]Entry, depth+1)
	copy(pushed, q.slots)

	if u.push {
		free := q.Count()
		switch {
		case free < depth:
			pushed[free] = u.entry
		case u.pop:
			// Full but popping: the entry takes the slot vacated by the shift.
			pushed[depth] = u.entry
		default:
			logrus.WithFields(logrus.Fields{
				"depth": depth,
				"data":  u.entry.Data,
			}).Panic("fifo: push into full queue without pop")
		}
	}

	if u.pop {
		copy(next, pushed[1:])
	} else {
		copy(next, pushed[:depth])
	}

	return next
}

// commit latches the next slot values.
func (q *Queue) commit(next []Entry) {
	copy(q.slots, next)
}
