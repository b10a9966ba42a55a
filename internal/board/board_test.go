package board

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"trenchline.gg/internal/catalogs"
	"trenchline.gg/internal/grid"
)

func testRegistry(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	c, err := catalogs.New([]catalogs.SoldierType{
		{Name: "Rifleman", Stats: catalogs.Stats{Health: 40, Dmg: 8}},
		{Name: "Sniper", Stats: catalogs.Stats{Health: 30, Dmg: 30}},
	}, nil)
	if err != nil {
		t.Fatalf("catalogs.New: %v", err)
	}
	return c
}

func soldier(t *testing.T, reg *catalogs.Catalogs, name, tier string) Soldier {
	t.Helper()
	st, ok := reg.ResolveByName(name)
	if !ok {
		t.Fatalf("unknown soldier %q", name)
	}
	tr, ok := reg.TierByName(tier)
	if !ok {
		t.Fatalf("unknown tier %q", tier)
	}
	return Soldier{Type: st, Tier: tr}
}

func TestNew_DropsOverlappingSlots(t *testing.T) {
	var buf bytes.Buffer
	b, err := New([][2]float64{{0, 0}, {1.25, 0}, {0, 0}}, log.New(&buf, "", 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.Cols() != 2 || b.Rows() != 1 || len(b.Slots()) != 2 {
		t.Fatalf("cols=%d rows=%d slots=%v", b.Cols(), b.Rows(), b.Slots())
	}
	if !strings.Contains(buf.String(), "overlaps") {
		t.Fatalf("expected collision log, got %q", buf.String())
	}
}

func TestPlaceRemove(t *testing.T) {
	reg := testRegistry(t)
	b, _ := New([][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}, nil)

	if err := b.Place(1, 0, soldier(t, reg, "Rifleman", "Rare")); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if err := b.Place(1, 0, soldier(t, reg, "Sniper", "Common")); !errors.Is(err, ErrSlotOccupied) {
		t.Fatalf("err=%v want ErrSlotOccupied", err)
	}
	if err := b.Place(5, 5, soldier(t, reg, "Sniper", "Common")); !errors.Is(err, grid.ErrOutOfRange) {
		t.Fatalf("err=%v want ErrOutOfRange", err)
	}
	s, ok, err := b.At(1, 0)
	if err != nil || !ok || s.Type.Name != "Rifleman" {
		t.Fatalf("At=%+v,%v,%v", s, ok, err)
	}
	if got := s.Stats(); got.Health != 50 || got.Dmg != 15 {
		t.Fatalf("tiered stats=%+v", got)
	}
	if _, ok, _ := b.Remove(1, 0); !ok {
		t.Fatalf("Remove reported empty slot")
	}
	if len(b.Occupied()) != 0 {
		t.Fatalf("board not empty after Remove")
	}
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	reg := testRegistry(t)
	b, _ := New([][2]float64{{0, 0}, {2, 0}, {0, 3}}, nil)
	_ = b.Place(0, 0, soldier(t, reg, "Rifleman", "Rare"))
	_ = b.Place(0, 1, soldier(t, reg, "Sniper", "Ultra"))

	snap := b.Snapshot()
	if snap[grid.Coord{X: 0, Y: 0}] != (Record{"Rifleman", "Rare"}) {
		t.Fatalf("snapshot=%v", snap)
	}

	other, _ := New([][2]float64{{0, 0}, {2, 0}, {0, 3}}, nil)
	_ = other.Place(1, 0, soldier(t, reg, "Sniper", "Common"))
	n, err := other.Restore(snap, reg)
	if err != nil || n != 2 {
		t.Fatalf("Restore=%d,%v", n, err)
	}
	if _, ok, _ := other.At(1, 0); ok {
		t.Fatalf("stale soldier survived Restore")
	}
	s, ok, _ := other.At(0, 1)
	if !ok || s.Type.Name != "Sniper" || s.Tier.Name != "Ultra" {
		t.Fatalf("At(0,1)=%+v,%v", s, ok)
	}
}

func TestResolve_SkipsAndFallsBack(t *testing.T) {
	reg := testRegistry(t)
	b, _ := New([][2]float64{{0, 0}, {1, 0}}, nil)
	records := map[grid.Coord]Record{
		{X: 0, Y: 0}: {"Rifleman", "Legendary"},
		{X: 1, Y: 0}: {"Tank", "Rare"},
		{X: 9, Y: 9}: {"Sniper", "Rare"},
	}
	occ, warnings := b.Resolve(records, reg)
	if len(occ) != 1 || occ[grid.Coord{}].Tier.Name != "Common" {
		t.Fatalf("occ=%+v", occ)
	}
	if len(warnings) != 3 {
		t.Fatalf("warnings=%v", warnings)
	}
	if len(b.Occupied()) != 0 {
		t.Fatalf("Resolve must not mutate the board")
	}
}

func TestSlotAt(t *testing.T) {
	b, _ := New([][2]float64{{0, 0}, {1.25, 0}, {2.5, 0}}, nil)
	c, err := b.SlotAt(2.5, 0)
	if err != nil || c != (grid.Coord{X: 2, Y: 0}) {
		t.Fatalf("SlotAt=%v,%v", c, err)
	}
	if _, err := b.SlotAt(2.4, 0); !errors.Is(err, grid.ErrOutOfRange) {
		t.Fatalf("err=%v want ErrOutOfRange", err)
	}
}
