package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"trenchline.gg/internal/board"
	"trenchline.gg/internal/persistence/archive"
	"trenchline.gg/internal/persistence/gridcodec"
	persistlog "trenchline.gg/internal/persistence/log"
	"trenchline.gg/internal/persistence/savefile"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "validate":
			validateCmd(os.Args[2:])
			return
		case "backups":
			backupsCmd(os.Args[2:])
			return
		case "restore-backup":
			restoreBackupCmd(os.Args[2:])
			return
		case "spins":
			spinsCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "kv":
			kvCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "save":
			saveCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	savesDir := fs.String("saves", "./data/Saves", "save directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(*savesDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), savefile.Ext) {
			fmt.Println(e.Name())
		}
	}
}

func loadDoc(savesDir, name string) (string, gridcodec.Document[board.Record], error) {
	path := savefile.ResolvePath(savesDir, name)
	doc, err := savefile.LoadFromPath[board.Record](savefile.FileStore{}, path)
	return path, doc, err
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	savesDir := fs.String("saves", "./data/Saves", "save directory")
	width := fs.Int("cell", 14, "cell width in columns")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: admin inspect [-saves dir] <save>")
		os.Exit(2)
	}

	path, doc, err := loadDoc(*savesDir, fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	records, meta := gridcodec.Decode(doc)
	fmt.Printf("save: %s\n", path)
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s = %s\n", k, meta[k])
	}
	fmt.Print(renderBoard(records, *width))
}

func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	savesDir := fs.String("saves", "./data/Saves", "save directory")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: admin validate [-saves dir] <save>...")
		os.Exit(2)
	}

	failed := false
	for _, name := range fs.Args() {
		path, doc, err := loadDoc(*savesDir, name)
		if err != nil {
			failed = true
			fmt.Printf("FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Printf("ok   %s: %d entries, %d metadata\n", path, len(doc.Entries), len(doc.Metadata))
	}
	if failed {
		os.Exit(1)
	}
}

func backupsCmd(args []string) {
	fs := flag.NewFlagSet("backups", flag.ExitOnError)
	savesDir := fs.String("saves", "./data/Saves", "save directory")
	_ = fs.Parse(args)
	name := "MyFirstSave"
	if fs.NArg() > 0 {
		name = fs.Arg(0)
	}

	bs, err := archive.ListBackups(filepath.Join(*savesDir, "backups"), name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, b := range bs {
		fmt.Printf("%s  %s\n", b.CreatedAt.Format("2006-01-02 15:04:05.000"), b.Path)
	}
}

func restoreBackupCmd(args []string) {
	fs := flag.NewFlagSet("restore-backup", flag.ExitOnError)
	savesDir := fs.String("saves", "./data/Saves", "save directory")
	outName := fs.String("out", "", "save name or path to write (default: the backup's save)")
	keep := fs.Int("keep", 3, "backups to keep when the target is overwritten")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: admin restore-backup [-saves dir] [-out name] <backup.json.zst>")
		os.Exit(2)
	}

	rep, err := restoreBackup(fs.Arg(0), *savesDir, *outName, *keep)
	if err != nil {
		fmt.Fprintln(os.Stderr, "restore:", err)
		os.Exit(1)
	}
	fmt.Printf("restored %d entries to %s", rep.entries, rep.path)
	if rep.backup != "" {
		fmt.Printf(" (previous save backed up to %s)", rep.backup)
	}
	fmt.Println()
}

type restoreReport struct {
	path    string
	backup  string
	entries int
}

// restoreBackup validates a compressed backup before writing it over the
// target save, so a bad backup never replaces a good save.
func restoreBackup(backupPath, savesDir, outName string, keep int) (restoreReport, error) {
	var rep restoreReport
	raw, err := archive.ReadBackup(backupPath)
	if err != nil {
		return rep, err
	}
	doc, err := gridcodec.Unmarshal[board.Record](raw)
	if err != nil {
		return rep, err
	}

	if outName == "" {
		base := strings.TrimSuffix(filepath.Base(backupPath), ".json.zst")
		if i := strings.LastIndex(base, "-"); i > 0 {
			base = base[:i]
		}
		outName = base
	}
	rep.path = savefile.ResolvePath(savesDir, outName)
	rep.entries = len(doc.Entries)

	rep.backup, err = archive.BackupBeforeOverwrite(rep.path, filepath.Join(filepath.Dir(rep.path), "backups"), keep)
	if err != nil {
		return rep, fmt.Errorf("backup current save: %w", err)
	}
	if err := savefile.SaveToPath(savefile.FileStore{}, doc, rep.path); err != nil {
		return rep, err
	}
	return rep, nil
}

func logFiles(dir, prefix string, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix+"-") && strings.HasSuffix(e.Name(), ".jsonl.zst") {
			names = append(names, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(names)
	return names, nil
}

func spinsCmd(args []string) {
	fs := flag.NewFlagSet("spins", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	verbose := fs.Bool("v", false, "print every spin")
	_ = fs.Parse(args)

	files, err := logFiles(filepath.Join(*dataDir, "spins"), "spins", fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
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
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}
	if *verbose {
		for _, e := range entries {
			fmt.Printf("%s #%d %s/%s cost=%d balance=%d\n", e.Time, e.Seq, e.Item, e.Rarity, e.Cost, e.Balance)
		}
	}
	fmt.Print(summarizeSpins(entries))
}

// summarizeSpins tallies outcomes by rarity and item, most frequent first.
func summarizeSpins(entries []persistlog.SpinEntry) string {
	var b strings.Builder
	spent := 0
	rarities := map[string]int{}
	items := map[string]int{}
	for _, e := range entries {
		spent += e.Cost
		rarities[e.Rarity]++
		items[e.Item]++
	}
	fmt.Fprintf(&b, "spins=%d spent=%d\n", len(entries), spent)
	for _, tally := range []struct {
		label  string
		counts map[string]int
	}{{"rarity", rarities}, {"item", items}} {
		keys := make([]string, 0, len(tally.counts))
		for k := range tally.counts {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			ci, cj := tally.counts[keys[i]], tally.counts[keys[j]]
			if ci != cj {
				return ci > cj
			}
			return keys[i] < keys[j]
		})
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s %-10s %d\n", tally.label, k, tally.counts[k])
		}
	}
	return b.String()
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	action := fs.String("action", "", "only entries with this action (SAVE, LOAD, BACKUP, LOAD_FAILED)")
	_ = fs.Parse(args)

	files, err := logFiles(filepath.Join(*dataDir, "audit"), "audit", fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, p := range files {
		err := persistlog.ReadJSONL(p, func(line []byte) error {
			var e persistlog.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(p), err)
			}
			if *action != "" && !strings.EqualFold(e.Action, *action) {
				return nil
			}
			fmt.Printf("%s %-11s %s entries=%d points=%d %s\n", e.Time, e.Action, e.Path, e.Entries, e.Points, e.Reason)
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}
}
