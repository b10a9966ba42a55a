package grid

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	ErrOutOfRange          = errors.New("coordinate not on grid lattice")
	ErrDuplicateCoordinate = errors.New("duplicate grid coordinate")
	ErrInvalidPosition     = errors.New("invalid element position")
)

// Coord is a zero-based (col,row) lattice coordinate.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Element is one positioned input to Build. Occupied marks whether Payload is set.
type Element[T any] struct {
	X, Y     float64
	Payload  T
	Occupied bool
}

// Collision records an element that lost its coordinate during Build.
type Collision struct {
	Coord   Coord
	Element int // input index of the discarded element
	Keeper  int // input index of the element holding the coordinate
}

// CollisionError is returned by Build alongside a usable index.
type CollisionError struct {
	Collisions []Collision
}

func (e *CollisionError) Error() string {
	parts := make([]string, 0, len(e.Collisions))
	for _, c := range e.Collisions {
		parts = append(parts, fmt.Sprintf("%s element %d (kept %d)", c.Coord, c.Element, c.Keeper))
	}
	return fmt.Sprintf("%v: %s", ErrDuplicateCoordinate, strings.Join(parts, ", "))
}

func (e *CollisionError) Unwrap() error { return ErrDuplicateCoordinate }

type cell[T any] struct {
	value    T
	occupied bool
	owner    int
	pos      [2]float64
}

// Index maps lattice coordinates to optional occupants.
// It is not safe for concurrent mutation.
type Index[T any] struct {
	cells map[Coord]*cell[T]
	xRank map[float64]int
	yRank map[float64]int
	cols  int
	rows  int
}

// New returns an empty index with no lattice.
func New[T any]() *Index[T] {
	return &Index[T]{
		cells: map[Coord]*cell[T]{},
		xRank: map[float64]int{},
		yRank: map[float64]int{},
	}
}

// Build ranks the distinct X and Y values of elems and assigns every element
// the coordinate (rank of X, rank of Y).
//
// Elements are visited in input order. The first element to reach a coordinate
// keeps it, unless it has no payload and a later one does; the loser is reported
// in a *CollisionError. The index is still returned in that case.
func Build[T any](elems []Element[T]) (*Index[T], error) {
	ix := New[T]()
	if len(elems) == 0 {
		return ix, nil
	}

	xs := make([]float64, 0, len(elems))
	ys := make([]float64, 0, len(elems))
	for i, e := range elems {
		if !finite(e.X) || !finite(e.Y) {
			return nil, fmt.Errorf("%w: element %d at (%v,%v)", ErrInvalidPosition, i, e.X, e.Y)
		}
		if _, ok := ix.xRank[e.X]; !ok {
			ix.xRank[e.X] = -1
			xs = append(xs, e.X)
		}
		if _, ok := ix.yRank[e.Y]; !ok {
			ix.yRank[e.Y] = -1
			ys = append(ys, e.Y)
		}
	}
	sort.Float64s(xs)
	sort.Float64s(ys)
	for i, x := range xs {
		ix.xRank[x] = i
	}
	for i, y := range ys {
		ix.yRank[y] = i
	}
	ix.cols = len(xs)
	ix.rows = len(ys)

	var collisions []Collision
	for i, e := range elems {
		c := Coord{X: ix.xRank[e.X], Y: ix.yRank[e.Y]}
		prev, taken := ix.cells[c]
		if !taken {
			ix.cells[c] = &cell[T]{value: e.Payload, occupied: e.Occupied, owner: i, pos: [2]float64{e.X, e.Y}}
			continue
		}
		if !prev.occupied && e.Occupied {
			collisions = append(collisions, Collision{Coord: c, Element: prev.owner, Keeper: i})
			prev.value = e.Payload
			prev.occupied = true
			prev.owner = i
			continue
		}
		collisions = append(collisions, Collision{Coord: c, Element: i, Keeper: prev.owner})
	}
	if len(collisions) > 0 {
		return ix, &CollisionError{Collisions: collisions}
	}
	return ix, nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// GetAt returns the occupant at (x,y) and whether the cell is occupied.
func (ix *Index[T]) GetAt(x, y int) (T, bool, error) {
	var zero T
	c, ok := ix.cells[Coord{X: x, Y: y}]
	if !ok {
		return zero, false, fmt.Errorf("%w: (%d,%d)", ErrOutOfRange, x, y)
	}
	if !c.occupied {
		return zero, false, nil
	}
	return c.value, true, nil
}

// SetAt upserts the occupant of an existing coordinate.
func (ix *Index[T]) SetAt(x, y int, v T) error {
	c, ok := ix.cells[Coord{X: x, Y: y}]
	if !ok {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfRange, x, y)
	}
	c.value = v
	c.occupied = true
	return nil
}

// Clear empties the cell at (x,y) and returns the previous occupant.
func (ix *Index[T]) Clear(x, y int) (T, bool, error) {
	var zero T
	c, ok := ix.cells[Coord{X: x, Y: y}]
	if !ok {
		return zero, false, fmt.Errorf("%w: (%d,%d)", ErrOutOfRange, x, y)
	}
	prev, was := c.value, c.occupied
	c.value = zero
	c.occupied = false
	return prev, was, nil
}

// Add registers (x,y) as an explicit, empty coordinate. Existing cells are untouched.
func (ix *Index[T]) Add(x, y int) {
	c := Coord{X: x, Y: y}
	if _, ok := ix.cells[c]; ok {
		return
	}
	ix.cells[c] = &cell[T]{owner: -1, pos: [2]float64{math.NaN(), math.NaN()}}
	if x+1 > ix.cols {
		ix.cols = x + 1
	}
	if y+1 > ix.rows {
		ix.rows = y + 1
	}
}

func (ix *Index[T]) Contains(x, y int) bool {
	_, ok := ix.cells[Coord{X: x, Y: y}]
	return ok
}

// Len is the number of coordinates on the lattice, occupied or not.
func (ix *Index[T]) Len() int { return len(ix.cells) }

func (ix *Index[T]) Cols() int { return ix.cols }
func (ix *Index[T]) Rows() int { return ix.rows }

// Coords returns every coordinate in row-major order.
func (ix *Index[T]) Coords() []Coord {
	out := make([]Coord, 0, len(ix.cells))
	for c := range ix.cells {
		out = append(out, c)
	}
	SortCoords(out)
	return out
}

// Occupied returns a copy of the occupied cells.
func (ix *Index[T]) Occupied() map[Coord]T {
	out := make(map[Coord]T, len(ix.cells))
	for c, v := range ix.cells {
		if v.occupied {
			out[c] = v.value
		}
	}
	return out
}

// Position returns the source position of the element that produced c.
// Explicitly added coordinates have no source position.
func (ix *Index[T]) Position(c Coord) (x, y float64, ok bool) {
	v, found := ix.cells[c]
	if !found || v.owner < 0 {
		return 0, 0, false
	}
	return v.pos[0], v.pos[1], true
}

// CoordOf maps a source position back onto the lattice. Both axis values must
// have been observed by Build.
func (ix *Index[T]) CoordOf(px, py float64) (Coord, error) {
	x, okx := ix.xRank[px]
	y, oky := ix.yRank[py]
	if !okx || !oky {
		return Coord{}, fmt.Errorf("%w: position (%v,%v)", ErrOutOfRange, px, py)
	}
	c := Coord{X: x, Y: y}
	if _, ok := ix.cells[c]; !ok {
		return Coord{}, fmt.Errorf("%w: position (%v,%v)", ErrOutOfRange, px, py)
	}
	return c, nil
}

// SortCoords orders coordinates by row, then column.
func SortCoords(cs []Coord) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Y != cs[j].Y {
			return cs[i].Y < cs[j].Y
		}
		return cs[i].X < cs[j].X
	})
}
