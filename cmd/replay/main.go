package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"trenchline.gg/internal/catalogs"
	"trenchline.gg/internal/economy"
	"trenchline.gg/internal/gacha"
	persistlog "trenchline.gg/internal/persistence/log"
	"trenchline.gg/internal/session"
	"trenchline.gg/internal/tuning"
)

func main() {
	var (
		spinsDir   = flag.String("spins", "./data/spins", "dir containing spins-*.jsonl.zst")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed       = flag.Int64("seed", 0, "slot machine seed (default: tuning slot_machine.seed)")
	)
	flag.Parse()

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	if *seed != 0 {
		tune.SlotMachine.Seed = *seed
	}
	if tune.SlotMachine.Seed == 0 {
		fmt.Fprintln(os.Stderr, "replay needs a fixed seed; set slot_machine.seed or -seed")
		os.Exit(2)
	}

	files, err := listSpinFiles(*spinsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list spins:", err)
		os.Exit(1)
	}
	var entries []persistlog.SpinEntry
	for _, p := range files {
		err := persistlog.ReadJSONL(p, func(line []byte) error {
			var e persistlog.SpinEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(p), err)
			}
			entries = append(entries, e)
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read spins:", err)
			os.Exit(1)
		}
	}

	newMachine := func() (*gacha.Machine[string, string], error) {
		return session.NewMachine(tune, cats, gacha.NewSource(tune.SlotMachine.Seed))
	}
	runs := splitRuns(entries)
	bad := 0
	for i, run := range runs {
		mismatches, err := verifyRun(newMachine, run)
		if err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
		fmt.Printf("run %d: spins=%d mismatches=%d\n", i+1, len(run), len(mismatches))
		for _, m := range mismatches {
			fmt.Println("  " + m)
		}
		bad += len(mismatches)
	}
	if bad > 0 {
		os.Exit(1)
	}
	fmt.Println("replay ok")
}

func listSpinFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "spins-") && strings.HasSuffix(name, ".jsonl.zst") {
			out = append(out, filepath.Join(dir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

// splitRuns cuts the log at every seq reset; each server process starts its
// own random stream at seq 1.
func splitRuns(entries []persistlog.SpinEntry) [][]persistlog.SpinEntry {
	var runs [][]persistlog.SpinEntry
	for _, e := range entries {
		if e.Seq == 1 || len(runs) == 0 {
			runs = append(runs, nil)
		}
		runs[len(runs)-1] = append(runs[len(runs)-1], e)
	}
	return runs
}

// verifyRun re-spins a fresh machine once per logged entry and reports every
// entry whose outcome differs.
func verifyRun(newMachine func() (*gacha.Machine[string, string], error), run []persistlog.SpinEntry) ([]string, error) {
	m, err := newMachine()
	if err != nil {
		return nil, err
	}
	wallet := economy.NewWallet(math.MaxInt32)
	var out []string
	for _, e := range run {
		res, err := m.Spin(wallet)
		if err != nil {
			return out, fmt.Errorf("seq %d: %w", e.Seq, err)
		}
		if res.Item != e.Item || res.Rarity != e.Rarity {
			out = append(out, fmt.Sprintf("seq %d: logged %s/%s, replayed %s/%s", e.Seq, e.Item, e.Rarity, res.Item, res.Rarity))
			continue
		}
		if len(e.Picks) > 0 && len(e.Picks) != len(res.Picks) {
			out = append(out, fmt.Sprintf("seq %d: logged %d picks, replayed %d", e.Seq, len(e.Picks), len(res.Picks)))
			continue
		}
		for i, p := range e.Picks {
			if p.Item != res.Picks[i].Item || p.Rarity != res.Picks[i].Rarity {
				out = append(out, fmt.Sprintf("seq %d pick %d: logged %s/%s, replayed %s/%s", e.Seq, i, p.Item, p.Rarity, res.Picks[i].Item, res.Picks[i].Rarity))
				break
			}
		}
	}
	return out, nil
}
