package flist

import (
	"weak"

	"github.com/joshuapare/flistkit/pkg/types"
)

// The child identity cache maps a coordinate to a weak pointer to the live
// child proxy at that coordinate. All functions here run under the client
// lock.

// cached returns the live child at coord, or nil. Entries whose proxy was
// collected, released, re-parented or never populated are pruned and read
// as a miss.
func (f *FList) cached(coord types.Coordinate) *FList {
	wp, ok := f.children[coord]
	if !ok {
		return nil
	}
	n := wp.Value()
	if n == nil || n.refs <= 0 || n.parent != f || n.ref == 0 {
		delete(f.children, coord)
		return nil
	}
	return n
}

func (f *FList) register(coord types.Coordinate, n *FList) {
	if f.children == nil {
		f.children = make(map[types.Coordinate]weak.Pointer[FList])
	}
	f.children[coord] = weak.Make(n)
}

// forget removes the entry at coord if it still refers to n. A child
// released after being replaced must not erase its successor. A nil n
// removes the entry only if its proxy is gone.
func (f *FList) forget(coord types.Coordinate, n *FList) {
	wp, ok := f.children[coord]
	if !ok {
		return
	}
	if v := wp.Value(); v == nil || v == n {
		delete(f.children, coord)
	}
}

// liveChildren returns the populated live children of f.
func (f *FList) liveChildren() []*FList {
	out := make([]*FList, 0, len(f.children))
	for coord := range f.children {
		if n := f.cached(coord); n != nil {
			out = append(out, n)
		}
	}
	return out
}
