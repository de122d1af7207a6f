package world

import "container/heap"

type frontierEntry struct {
	cell     int
	priority int
	seq      int
}

// frontier is a binary min-heap of cell indices keyed by search priority.
// Equal priorities leave in insertion order. pos maps a cell index to its
// heap slot, -1 when the cell is not queued.
type frontier struct {
	entries []frontierEntry
	pos     []int
	seq     int
}

func newFrontier(cells int) *frontier {
	pos := make([]int, cells)
	for i := range pos {
		pos[i] = -1
	}
	return &frontier{pos: pos}
}

func (f *frontier) Len() int { return len(f.entries) }

func (f *frontier) Less(i, j int) bool {
	a, b := f.entries[i], f.entries[j]
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

func (f *frontier) Swap(i, j int) {
	f.entries[i], f.entries[j] = f.entries[j], f.entries[i]
	f.pos[f.entries[i].cell] = i
	f.pos[f.entries[j].cell] = j
}

func (f *frontier) Push(x any) {
	e := x.(frontierEntry)
	f.pos[e.cell] = len(f.entries)
	f.entries = append(f.entries, e)
}

func (f *frontier) Pop() any {
	n := len(f.entries) - 1
	e := f.entries[n]
	f.entries = f.entries[:n]
	f.pos[e.cell] = -1
	return e
}

// enqueue adds cell, or moves it when already queued. A moved cell queues
// behind cells that already share its new priority.
func (f *frontier) enqueue(cell, priority int) {
	f.seq++
	if i := f.pos[cell]; i >= 0 {
		f.entries[i].priority = priority
		f.entries[i].seq = f.seq
		heap.Fix(f, i)
		return
	}
	heap.Push(f, frontierEntry{cell: cell, priority: priority, seq: f.seq})
}

func (f *frontier) dequeue() int {
	return heap.Pop(f).(frontierEntry).cell
}

func (f *frontier) reset() {
	for _, e := range f.entries {
		f.pos[e.cell] = -1
	}
	f.entries = f.entries[:0]
	f.seq = 0
}
