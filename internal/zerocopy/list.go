// Package zerocopy provides an immutable list that extends another list by
// one element without copying it.
package zerocopy

import (
	"iter"
	"slices"
)

// List is an immutable sequence made of a shared head and one tail
// element. It has no mutators; Append returns a new List that shares the
// receiver as its head.
type List[T comparable] struct {
	head []T
	prev *List[T]
	tail T
	n    int
}

// Of returns a one-element list.
func Of[T comparable](tail T) *List[T] {
	return &List[T]{tail: tail, n: 1}
}

// FromSlice returns a list whose head is head and whose last element is
// tail. head is used in place and must not be modified afterwards.
func FromSlice[T comparable](head []T, tail T) *List[T] {
	return &List[T]{head: head, tail: tail, n: len(head) + 1}
}

// Append returns a list with v after the receiver's elements.
func (l *List[T]) Append(v T) *List[T] {
	return &List[T]{prev: l, tail: v, n: l.n + 1}
}

// Len returns the number of elements.
func (l *List[T]) Len() int {
	return l.n
}

// Tail returns the last element.
func (l *List[T]) Tail() T {
	return l.tail
}

// At returns the element at index i and panics when i is out of range.
func (l *List[T]) At(i int) T {
	if i < 0 || i >= l.n {
		panic("zerocopy: index out of range")
	}
	for cur := l; ; cur = cur.prev {
		if i == cur.n-1 {
			return cur.tail
		}
		if cur.prev == nil {
			return cur.head[i]
		}
	}
}

// Contains reports whether v is an element of the list.
func (l *List[T]) Contains(v T) bool {
	for cur := l; cur != nil; cur = cur.prev {
		if cur.tail == v {
			return true
		}
		if cur.prev == nil {
			return slices.Contains(cur.head, v)
		}
	}
	return false
}

// All yields index/element pairs in order.
func (l *List[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, v := range l.Slice() {
			if !yield(i, v) {
				return
			}
		}
	}
}

// Slice copies the elements into a new slice.
func (l *List[T]) Slice() []T {
	out := make([]T, l.n)
	cur := l
	for cur.prev != nil {
		out[cur.n-1] = cur.tail
		cur = cur.prev
	}
	copy(out, cur.head)
	out[cur.n-1] = cur.tail
	return out
}
