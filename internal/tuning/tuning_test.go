package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_RepoConfig(t *testing.T) {
	tune, err := Load(filepath.Join("..", "..", "configs", "tuning.yaml"), "/data")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tune.Board.Columns != 5 || tune.Board.Rows != 4 {
		t.Fatalf("board=%+v", tune.Board)
	}
	if len(tune.SlotMachine.Items) != 4 || len(tune.SlotMachine.Rarities) != 5 {
		t.Fatalf("pools: items=%d rarities=%d", len(tune.SlotMachine.Items), len(tune.SlotMachine.Rarities))
	}
	if tune.Saves.Dir != filepath.Join("/data", "Saves") || tune.Saves.KVPath != filepath.Join("/data", "prefs.db") {
		t.Fatalf("saves=%+v", tune.Saves)
	}
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("economy:\n  spin_cost: 5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tune, err := Load(p, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tune.Economy.SpinCost != 5 || tune.Economy.StartingPoints != 100 {
		t.Fatalf("economy=%+v", tune.Economy)
	}
	if tune.SlotMachine.RollCount != 3 || tune.SlotMachine.RarityMode != "shared" {
		t.Fatalf("slot machine=%+v", tune.SlotMachine)
	}
	if tune.Saves.DefaultName != "MyFirstSave" || tune.Saves.Dir != "Saves" {
		t.Fatalf("saves=%+v", tune.Saves)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":      "board: [",
		"rarity mode":   "slot_machine:\n  rarity_mode: sometimes\n",
		"fallback":      "saves:\n  fallback: cloud\n",
		"neg weight":    "slot_machine:\n  items:\n    - {name: A, weight: -1}\n",
		"dup rarity":    "slot_machine:\n  rarities:\n    - {name: A, weight: 1}\n    - {name: A, weight: 2}\n",
		"zero columns":  "board:\n  columns: 0\n  rows: 0\n",
		"negative cost": "economy:\n  spin_cost: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "tuning.yaml")
			if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, err := Load(p, "")
			if err == nil || !strings.Contains(err.Error(), "tuning.yaml") {
				t.Fatalf("err=%v", err)
			}
		})
	}
}

func TestBoard_SlotPositions(t *testing.T) {
	b := Board{Columns: 3, Rows: 2, CellSize: 1, GapSize: 0.5, Origin: [2]float64{-1, 2}}
	got := b.SlotPositions()
	if len(got) != 6 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0] != [2]float64{-1, 2} || got[2] != [2]float64{2, 2} || got[5] != [2]float64{2, 3.5} {
		t.Fatalf("positions=%v", got)
	}
}
