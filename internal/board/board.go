package board

import (
	"errors"
	"fmt"
	"io"
	"log"

	"trenchline.gg/internal/catalogs"
	"trenchline.gg/internal/grid"
)

var ErrSlotOccupied = errors.New("slot occupied")

// Soldier is a placed unit: a type plus the tier it was rolled at.
type Soldier struct {
	Type catalogs.SoldierType
	Tier catalogs.Tier
}

func (s Soldier) Stats() catalogs.Stats { return s.Tier.Apply(s.Type.Stats) }

// Record is the saved form of a Soldier.
type Record struct {
	SoldierTypeName string `json:"soldierTypeName"`
	SoldierTierName string `json:"soldierTierName"`
}

// Registry resolves saved names back into definitions.
type Registry interface {
	ResolveByName(name string) (catalogs.SoldierType, bool)
	TierByName(name string) (catalogs.Tier, bool)
	DefaultTier() catalogs.Tier
}

// Board is the grid of item slots soldiers are dropped onto.
type Board struct {
	slots *grid.Index[Soldier]
	log   *log.Logger
}

// New indexes the given slot positions. Overlapping slots are logged and dropped.
func New(positions [][2]float64, logger *log.Logger) (*Board, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	elems := make([]grid.Element[Soldier], len(positions))
	for i, p := range positions {
		elems[i] = grid.Element[Soldier]{X: p[0], Y: p[1]}
	}
	ix, err := grid.Build(elems)
	var ce *grid.CollisionError
	switch {
	case errors.As(err, &ce):
		for _, c := range ce.Collisions {
			logger.Printf("board: slot %d overlaps slot %d at %s; dropped", c.Element, c.Keeper, c.Coord)
		}
	case err != nil:
		return nil, err
	}
	return &Board{slots: ix, log: logger}, nil
}

func (b *Board) Cols() int           { return b.slots.Cols() }
func (b *Board) Rows() int           { return b.slots.Rows() }
func (b *Board) Slots() []grid.Coord { return b.slots.Coords() }

// SlotAt maps a local position onto its slot coordinate.
func (b *Board) SlotAt(px, py float64) (grid.Coord, error) {
	return b.slots.CoordOf(px, py)
}

func (b *Board) At(x, y int) (Soldier, bool, error) {
	return b.slots.GetAt(x, y)
}

// Place puts s into an empty slot.
func (b *Board) Place(x, y int, s Soldier) error {
	_, occupied, err := b.slots.GetAt(x, y)
	if err != nil {
		return err
	}
	if occupied {
		return fmt.Errorf("%w: (%d,%d)", ErrSlotOccupied, x, y)
	}
	return b.slots.SetAt(x, y, s)
}

func (b *Board) Remove(x, y int) (Soldier, bool, error) {
	return b.slots.Clear(x, y)
}

func (b *Board) Occupied() map[grid.Coord]Soldier {
	return b.slots.Occupied()
}

// Snapshot returns the saveable form of every occupied slot.
func (b *Board) Snapshot() map[grid.Coord]Record {
	occ := b.slots.Occupied()
	out := make(map[grid.Coord]Record, len(occ))
	for c, s := range occ {
		out[c] = Record{SoldierTypeName: s.Type.Name, SoldierTierName: s.Tier.Name}
	}
	return out
}

// Resolve turns saved records into soldiers without touching the board.
// Records off the slot lattice or naming an unknown soldier type are skipped;
// an unknown tier falls back to the registry's default tier. Each skip or
// fallback is returned as a warning.
func (b *Board) Resolve(records map[grid.Coord]Record, reg Registry) (map[grid.Coord]Soldier, []string) {
	out := make(map[grid.Coord]Soldier, len(records))
	var warnings []string
	coords := make([]grid.Coord, 0, len(records))
	for c := range records {
		coords = append(coords, c)
	}
	grid.SortCoords(coords)

	for _, c := range coords {
		r := records[c]
		if !b.slots.Contains(c.X, c.Y) {
			warnings = append(warnings, fmt.Sprintf("slot %s not on board; skipped %q", c, r.SoldierTypeName))
			continue
		}
		st, ok := reg.ResolveByName(r.SoldierTypeName)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("slot %s: unknown soldier type %q; skipped", c, r.SoldierTypeName))
			continue
		}
		tier, ok := reg.TierByName(r.SoldierTierName)
		if !ok {
			tier = reg.DefaultTier()
			warnings = append(warnings, fmt.Sprintf("slot %s: unknown tier %q; using %s", c, r.SoldierTierName, tier.Name))
		}
		out[c] = Soldier{Type: st, Tier: tier}
	}
	return out, warnings
}

// Replace clears every slot and places occ. Coordinates must come from Resolve.
func (b *Board) Replace(occ map[grid.Coord]Soldier) error {
	for c := range occ {
		if !b.slots.Contains(c.X, c.Y) {
			return fmt.Errorf("%w: %s", grid.ErrOutOfRange, c)
		}
	}
	for _, c := range b.slots.Coords() {
		_, _, _ = b.slots.Clear(c.X, c.Y)
	}
	for c, s := range occ {
		_ = b.slots.SetAt(c.X, c.Y, s)
	}
	return nil
}

// Restore resolves records and replaces the board contents with them.
func (b *Board) Restore(records map[grid.Coord]Record, reg Registry) (int, error) {
	occ, warnings := b.Resolve(records, reg)
	for _, w := range warnings {
		b.log.Printf("board: %s", w)
	}
	if err := b.Replace(occ); err != nil {
		return 0, err
	}
	return len(occ), nil
}
