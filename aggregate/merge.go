package aggregate

import (
	"container/heap"
	"errors"

	"github.com/arloliu/hicnorm/contact"
)

// cursor is the head of one sorted run.
type cursor struct {
	stream contact.RecordStream
	head   contact.Record
	order  int // run index, breaks ties so equal cells merge in run order
}

type cursorHeap []*cursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	if c := compareRecords(h[i].head, h[j].head); c != 0 {
		return c < 0
	}

	return h[i].order < h[j].order
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) { *h = append(*h, x.(*cursor)) } //nolint:forcetypeassert

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]

	return c
}

// merge k-way merges sorted streams, summing records of the same cell, and
// closes every stream. Returning early because yield stopped is not an error.
func merge(streams []contact.RecordStream, yield func(contact.Record) bool) (err error) {
	defer func() {
		for _, s := range streams {
			err = errors.Join(err, s.Close())
		}
	}()

	h := make(cursorHeap, 0, len(streams))
	for order, s := range streams {
		r, ok := s.Next()
		if !ok {
			if err := s.Err(); err != nil {
				return err
			}

			continue
		}
		h = append(h, &cursor{stream: s, head: r, order: order})
	}
	heap.Init(&h)

	var (
		pending contact.Record
		has     bool
	)
	for h.Len() > 0 {
		top := h[0]
		r := top.head

		if next, ok := top.stream.Next(); ok {
			top.head = next
			heap.Fix(&h, 0)
		} else {
			if err := top.stream.Err(); err != nil {
				return err
			}
			heap.Pop(&h)
		}

		if has && r.BinX == pending.BinX && r.BinY == pending.BinY {
			pending.Count += r.Count
			continue
		}
		if has && !yield(pending) {
			return nil
		}
		pending, has = r, true
	}

	if has {
		yield(pending)
	}

	return nil
}
