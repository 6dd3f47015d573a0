package queue

import "github.com/chaseleif/starswitch/internal/wire"

// DataEntry is one admitted, in-flight transfer.
type DataEntry struct {
	Src       int
	Dst       int
	Remaining uint64
	// Scratch is the slot's own buffer: bytes read from Src are staged
	// here before being written to Dst, one chunk at a time. Ownership
	// conceptually transfers from sender to destination within a single
	// receive-then-send pair; no allocation happens per chunk.
	Scratch [wire.MaxFrameSize]byte
}

type dataSlot struct {
	occupied bool
	entry    DataEntry
}

// DataQueue is a bounded set of admitted transfers, each owning a scratch
// buffer for the duration of the transfer.
type DataQueue struct {
	slots []dataSlot
}

// NewDataQueue creates a queue with the given fixed capacity.
func NewDataQueue(capacity int) *DataQueue {
	return &DataQueue{slots: make([]dataSlot, capacity)}
}

// FindFree returns the index of the first empty slot, or -1 if full.
func (q *DataQueue) FindFree() int {
	for i := range q.slots {
		if !q.slots[i].occupied {
			return i
		}
	}
	return -1
}

// Admit installs entry into slot i, which must currently be free.
func (q *DataQueue) Admit(i int, entry DataEntry) {
	q.slots[i] = dataSlot{occupied: true, entry: entry}
}

// MarkFree frees slot i.
func (q *DataQueue) MarkFree(i int) {
	q.slots[i] = dataSlot{}
}

// FindBySrc returns the index of the slot whose Src matches, or -1.
func (q *DataQueue) FindBySrc(src int) int {
	for i := range q.slots {
		if q.slots[i].occupied && q.slots[i].entry.Src == src {
			return i
		}
	}
	return -1
}

// Get returns a pointer to the entry at slot i for in-place mutation
// (Remaining decrements, Scratch writes). i must refer to an occupied slot.
func (q *DataQueue) Get(i int) *DataEntry {
	return &q.slots[i].entry
}

// Len reports how many slots are currently occupied.
func (q *DataQueue) Len() int {
	n := 0
	for _, s := range q.slots {
		if s.occupied {
			n++
		}
	}
	return n
}
