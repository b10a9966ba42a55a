package tuning

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	Board       Board       `yaml:"board"`
	Economy     Economy     `yaml:"economy"`
	SlotMachine SlotMachine `yaml:"slot_machine"`
	Saves       Saves       `yaml:"saves"`
}

// Board describes the slot layout: slot (x,y) sits at
// origin + (x,y) * (cell_size + gap_size) in local space.
type Board struct {
	Columns  int        `yaml:"columns"`
	Rows     int        `yaml:"rows"`
	CellSize float64    `yaml:"cell_size"`
	GapSize  float64    `yaml:"gap_size"`
	Origin   [2]float64 `yaml:"origin"`
}

type Economy struct {
	StartingPoints int `yaml:"starting_points"`
	SpinCost       int `yaml:"spin_cost"`
}

type SlotMachine struct {
	RollCount  int            `yaml:"roll_count"`
	RarityMode string         `yaml:"rarity_mode"` // "shared" | "per_roll"
	Seed       int64          `yaml:"seed"`
	Items      []WeightedName `yaml:"items"`
	Rarities   []WeightedName `yaml:"rarities"`
}

type WeightedName struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

type Saves struct {
	Dir         string `yaml:"dir"`
	DefaultName string `yaml:"default_name"`
	KVPath      string `yaml:"kv_path"`
	Fallback    string `yaml:"fallback"` // "auto" | "always" | "never"
	Backups     int    `yaml:"backups"`
}

func Defaults() Tuning {
	return Tuning{
		Board: Board{Columns: 5, Rows: 5, CellSize: 1},
		Economy: Economy{
			StartingPoints: 100,
			SpinCost:       50,
		},
		SlotMachine: SlotMachine{
			RollCount:  3,
			RarityMode: "shared",
			Rarities: []WeightedName{
				{Name: "Common", Weight: 60},
				{Name: "Uncommon", Weight: 25},
				{Name: "Rare", Weight: 10},
				{Name: "SuperRare", Weight: 4},
				{Name: "Ultra", Weight: 1},
			},
		},
		Saves: Saves{
			DefaultName: "MyFirstSave",
			Fallback:    "auto",
			Backups:     3,
		},
	}
}

// Load reads path over Defaults. Relative save paths are resolved against dataDir.
func Load(path, dataDir string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize(dataDir)
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize(dataDir string) {
	if t.Board.CellSize <= 0 {
		t.Board.CellSize = 1
	}
	if t.Board.GapSize < 0 {
		t.Board.GapSize = 0
	}
	if t.SlotMachine.RollCount <= 0 {
		t.SlotMachine.RollCount = 3
	}
	t.SlotMachine.RarityMode = strings.ToLower(strings.TrimSpace(t.SlotMachine.RarityMode))
	if t.SlotMachine.RarityMode == "" {
		t.SlotMachine.RarityMode = "shared"
	}
	t.Saves.Fallback = strings.ToLower(strings.TrimSpace(t.Saves.Fallback))
	if t.Saves.Fallback == "" {
		t.Saves.Fallback = "auto"
	}
	if strings.TrimSpace(t.Saves.DefaultName) == "" {
		t.Saves.DefaultName = "MyFirstSave"
	}
	if t.Saves.Dir == "" {
		t.Saves.Dir = "Saves"
	}
	if t.Saves.KVPath == "" {
		t.Saves.KVPath = "prefs.db"
	}
	if dataDir != "" {
		if !filepath.IsAbs(t.Saves.Dir) {
			t.Saves.Dir = filepath.Join(dataDir, t.Saves.Dir)
		}
		if !filepath.IsAbs(t.Saves.KVPath) {
			t.Saves.KVPath = filepath.Join(dataDir, t.Saves.KVPath)
		}
	}
}

func (t Tuning) Validate() error {
	if t.Board.Columns <= 0 || t.Board.Rows <= 0 {
		return fmt.Errorf("board: columns and rows must be positive (got %dx%d)", t.Board.Columns, t.Board.Rows)
	}
	if t.Economy.SpinCost < 0 || t.Economy.StartingPoints < 0 {
		return fmt.Errorf("economy: negative spin_cost or starting_points")
	}
	switch t.SlotMachine.RarityMode {
	case "shared", "per_roll":
	default:
		return fmt.Errorf("slot_machine: unknown rarity_mode %q", t.SlotMachine.RarityMode)
	}
	switch t.Saves.Fallback {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("saves: unknown fallback %q", t.Saves.Fallback)
	}
	if err := validatePool("items", t.SlotMachine.Items, true); err != nil {
		return err
	}
	return validatePool("rarities", t.SlotMachine.Rarities, false)
}

func validatePool(name string, pool []WeightedName, allowEmpty bool) error {
	if len(pool) == 0 {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("slot_machine.%s: empty", name)
	}
	seen := map[string]bool{}
	for _, e := range pool {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("slot_machine.%s: empty name", name)
		}
		if seen[e.Name] {
			return fmt.Errorf("slot_machine.%s: duplicate %q", name, e.Name)
		}
		seen[e.Name] = true
		if e.Weight < 0 {
			return fmt.Errorf("slot_machine.%s: negative weight for %q", name, e.Name)
		}
	}
	return nil
}

// SlotPositions lays out Columns x Rows slot positions, row by row.
func (b Board) SlotPositions() [][2]float64 {
	step := b.CellSize + b.GapSize
	out := make([][2]float64, 0, b.Columns*b.Rows)
	for y := 0; y < b.Rows; y++ {
		for x := 0; x < b.Columns; x++ {
			out = append(out, [2]float64{b.Origin[0] + float64(x)*step, b.Origin[1] + float64(y)*step})
		}
	}
	return out
}
