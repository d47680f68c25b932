// Package pstack provides a linked-list stack of arbitrary scope payloads,
// adapted from the teacher's util/stack.go. The IR emitter's per-function
// frame holds one (frame.scopes); neither the emitter nor the resolver
// pushes scopes onto it or looks identifiers up through it.
package pstack

import "sync"

// element holds one entry in the stack's backing linked list.
type element struct {
	v    interface{}
	next *element
}

// Stack is a mutex-guarded linked-list stack. It does not store <nil>
// values: Push silently drops them, matching the teacher's stack.
type Stack struct {
	size   int
	bottom *element
	top    *element
	mx     sync.Mutex
}

// Push adds e to the top of the stack.
func (s *Stack) Push(e interface{}) {
	if e == nil {
		return
	}
	node := &element{v: e}
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.size == 0 {
		s.bottom = node
		s.top = node
	} else {
		s.top.next = node
		s.top = node
	}
	s.size++
}

// Pop removes and returns the most recently pushed element, or nil if the
// stack is empty.
func (s *Stack) Pop() interface{} {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.size == 0 {
		return nil
	}
	if s.size == 1 {
		e := s.bottom
		s.bottom, s.top = nil, nil
		s.size--
		return e.v
	}
	prev := s.bottom
	cur := prev.next
	for cur.next != nil {
		prev = cur
		cur = cur.next
	}
	s.top = prev
	s.top.next = nil
	s.size--
	return cur.v
}

// Peek returns the top element without removing it, or nil if empty.
func (s *Stack) Peek() interface{} {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.size == 0 {
		return nil
	}
	return s.top.v
}

// Size returns the number of elements currently on the stack.
func (s *Stack) Size() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.size
}

// Get returns the nth element counted top-down, 1-indexed: Get(1) is the
// same as Peek, Get(Size()) is the bottom element. Returns nil if n is
// out of range.
func (s *Stack) Get(n int) interface{} {
	s.mx.Lock()
	defer s.mx.Unlock()
	if n < 1 || n > s.size {
		return nil
	}
	e := s.bottom
	for i := 0; i < s.size-n; i++ {
		e = e.next
	}
	return e.v
}
