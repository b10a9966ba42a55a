package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"trenchline.gg/internal/board"
	"trenchline.gg/internal/catalogs"
	"trenchline.gg/internal/economy"
	"trenchline.gg/internal/gacha"
	"trenchline.gg/internal/grid"
	"trenchline.gg/internal/persistence/archive"
	"trenchline.gg/internal/persistence/gridcodec"
	plog "trenchline.gg/internal/persistence/log"
	"trenchline.gg/internal/persistence/savefile"
	"trenchline.gg/internal/tuning"
)

var (
	ErrNoSuchReward = errors.New("no such reserve entry")
	ErrUnknownType  = errors.New("unknown soldier type")
	ErrBadSaveName  = errors.New("invalid save name")
)

const MetaPoints = "points"

type SpinWriter interface {
	WriteSpin(plog.SpinEntry) error
}

type AuditWriter interface {
	WriteAudit(plog.AuditEntry) error
}

type Config struct {
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs
	Store    savefile.Store
	Src      gacha.Source
	Spins    SpinWriter
	Audit    AuditWriter
	Logger   *log.Logger
}

// Game owns one player's board, wallet and reserve of unplaced soldiers.
// All methods are safe for concurrent use; they are serialized internally.
type Game struct {
	mu sync.Mutex

	tune    tuning.Tuning
	cats    *catalogs.Catalogs
	store   savefile.Store
	spins   SpinWriter
	audit   AuditWriter
	log     *log.Logger
	board   *board.Board
	wallet  *economy.Wallet
	machine *gacha.Machine[string, string]
	reserve []board.Soldier
	spinSeq uint64
}

func New(cfg Config) (*Game, error) {
	if cfg.Catalogs == nil {
		return nil, fmt.Errorf("session: nil catalogs")
	}
	if cfg.Store == nil {
		cfg.Store = savefile.FileStore{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if cfg.Src == nil {
		cfg.Src = gacha.NewSource(cfg.Tuning.SlotMachine.Seed)
	}

	b, err := board.New(cfg.Tuning.Board.SlotPositions(), cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("board: %w", err)
	}
	m, err := NewMachine(cfg.Tuning, cfg.Catalogs, cfg.Src)
	if err != nil {
		return nil, err
	}
	return &Game{
		tune:    cfg.Tuning,
		cats:    cfg.Catalogs,
		store:   cfg.Store,
		spins:   cfg.Spins,
		audit:   cfg.Audit,
		log:     cfg.Logger,
		board:   b,
		wallet:  economy.NewWallet(cfg.Tuning.Economy.StartingPoints),
		machine: m,
	}, nil
}

// NewMachine builds the slot machine from tuning. An empty item pool uses
// every catalog soldier at weight 1.
func NewMachine(t tuning.Tuning, cats *catalogs.Catalogs, src gacha.Source) (*gacha.Machine[string, string], error) {
	m := &gacha.Machine[string, string]{
		RollCount: t.SlotMachine.RollCount,
		Cost:      t.Economy.SpinCost,
		Mode:      gacha.RarityMode(t.SlotMachine.RarityMode),
		Rank:      cats.TierRank,
		Src:       src,
	}
	if len(t.SlotMachine.Items) == 0 {
		for _, n := range cats.Soldiers.Names {
			m.Items = append(m.Items, gacha.WeightedEntry[string]{Value: n, Weight: 1})
		}
	}
	for _, it := range t.SlotMachine.Items {
		if _, ok := cats.ResolveByName(it.Name); !ok {
			return nil, fmt.Errorf("slot_machine.items: %w %q", ErrUnknownType, it.Name)
		}
		m.Items = append(m.Items, gacha.WeightedEntry[string]{Value: it.Name, Weight: it.Weight})
	}
	for _, r := range t.SlotMachine.Rarities {
		if _, ok := cats.TierByName(r.Name); !ok {
			return nil, fmt.Errorf("slot_machine.rarities: unknown tier %q", r.Name)
		}
		m.Rarities = append(m.Rarities, gacha.WeightedEntry[string]{Value: r.Name, Weight: r.Weight})
	}
	return m, nil
}

// Points returns the current balance.
func (g *Game) Points() int { return g.wallet.CurrentBalance() }

// AddPoints credits the wallet, e.g. for a kill reported by the game client.
func (g *Game) AddPoints(n int) int {
	g.wallet.AddPoints(n)
	return g.wallet.CurrentBalance()
}

// Spin charges the spin cost and adds the rolled soldier to the reserve.
func (g *Game) Spin() (gacha.RollResult[string, string], error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	res, err := g.machine.Spin(g.wallet)
	if err != nil {
		return res, err
	}
	s, err := g.soldier(res.Item, res.Rarity)
	if err != nil {
		// Pools are checked against the catalogs at construction.
		return res, fmt.Errorf("spin resolved unknown reward: %w", err)
	}
	g.reserve = append(g.reserve, s)
	g.spinSeq++

	if g.spins != nil {
		e := plog.SpinEntry{
			Time:    time.Now().UTC().Format(time.RFC3339Nano),
			Seq:     g.spinSeq,
			Item:    res.Item,
			Rarity:  res.Rarity,
			Cost:    res.Cost,
			Balance: g.wallet.CurrentBalance(),
		}
		for _, p := range res.Picks {
			e.Picks = append(e.Picks, plog.SpinPick{Item: p.Item, Rarity: p.Rarity})
		}
		if err := g.spins.WriteSpin(e); err != nil {
			g.log.Printf("spin log: %v", err)
		}
	}
	return res, nil
}

// Buy purchases a base-tier soldier from the shop at its listed cost.
func (g *Game) Buy(name string) (board.Soldier, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, err := g.soldier(name, g.cats.DefaultTier().Name)
	if err != nil {
		return s, err
	}
	cost := int(math.Ceil(s.Type.Stats.Cost))
	if !g.wallet.TrySpend(cost) {
		return s, fmt.Errorf("%w: %s costs %d, balance %d", gacha.ErrInsufficientFunds, s.Type.Name, cost, g.wallet.CurrentBalance())
	}
	g.reserve = append(g.reserve, s)
	return s, nil
}

func (g *Game) soldier(name, tier string) (board.Soldier, error) {
	st, ok := g.cats.ResolveByName(name)
	if !ok {
		return board.Soldier{}, fmt.Errorf("%w %q", ErrUnknownType, name)
	}
	tr, ok := g.cats.TierByName(tier)
	if !ok {
		tr = g.cats.DefaultTier()
	}
	return board.Soldier{Type: st, Tier: tr}, nil
}

// Place moves reserve entry idx onto slot (x,y).
func (g *Game) Place(idx, x, y int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if idx < 0 || idx >= len(g.reserve) {
		return fmt.Errorf("%w: %d", ErrNoSuchReward, idx)
	}
	if err := g.board.Place(x, y, g.reserve[idx]); err != nil {
		return err
	}
	g.reserve = append(g.reserve[:idx], g.reserve[idx+1:]...)
	return nil
}

// Remove takes the soldier at (x,y) back into the reserve.
func (g *Game) Remove(x, y int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok, err := g.board.Remove(x, y)
	if err != nil {
		return err
	}
	if ok {
		g.reserve = append(g.reserve, s)
	}
	return nil
}

// SavePath resolves a save name (blank = default) to its path under the
// saves directory. Names that are absolute, contain a path separator or
// would land outside the saves directory fail with ErrBadSaveName.
func (g *Game) SavePath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = g.tune.Saves.DefaultName
	}
	if name == "." || name == ".." || filepath.IsAbs(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w %q", ErrBadSaveName, name)
	}
	dir := filepath.Clean(g.tune.Saves.Dir)
	path := savefile.ResolvePath(dir, name)
	if rel, err := filepath.Rel(dir, path); err != nil || rel != filepath.Base(path) {
		return "", fmt.Errorf("%w %q", ErrBadSaveName, name)
	}
	return path, nil
}

func (g *Game) SaveExists(name string) bool {
	path, err := g.SavePath(name)
	return err == nil && g.store.Exists(path)
}

type SaveReport struct {
	Path    string `json:"path"`
	Entries int    `json:"entries"`
	Points  int    `json:"points"`
	Backup  string `json:"backup,omitempty"`
}

// Save writes the board and points to the named save, backing up the
// previous document first wherever the store kept it.
func (g *Game) Save(name string) (SaveReport, error) {
	path, err := g.SavePath(name)
	if err != nil {
		return SaveReport{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rep := SaveReport{Path: path, Points: g.wallet.CurrentBalance()}
	if keep := g.tune.Saves.Backups; keep > 0 {
		prev, err := g.store.Read(path)
		switch {
		case err == nil:
			dst, err := archive.BackupBytes(path, prev, filepath.Join(filepath.Dir(path), "backups"), keep)
			if err != nil {
				g.log.Printf("save: backup %s: %v", path, err)
			} else {
				rep.Backup = dst
				g.writeAudit(plog.AuditEntry{Action: "BACKUP", Path: dst})
			}
		case !errors.Is(err, savefile.ErrNotFound):
			g.log.Printf("save: read previous %s: %v", path, err)
		}
	}

	snap := g.board.Snapshot()
	meta := map[string]string{MetaPoints: strconv.Itoa(rep.Points)}
	doc := gridcodec.Encode(snap, meta)
	if err := savefile.SaveToPath(g.store, doc, path); err != nil {
		return rep, err
	}
	rep.Entries = len(doc.Entries)
	g.log.Printf("saved %d soldiers to %s", rep.Entries, path)
	g.writeAudit(plog.AuditEntry{Action: "SAVE", Path: path, Entries: rep.Entries, Points: rep.Points})
	return rep, nil
}

type LoadReport struct {
	Path     string   `json:"path"`
	Soldiers int      `json:"soldiers"`
	Points   int      `json:"points"`
	Warnings []string `json:"warnings,omitempty"`
}

// Load replaces the board and points with the named save. Any read or decode
// failure leaves the current state untouched.
func (g *Game) Load(name string) (LoadReport, error) {
	path, err := g.SavePath(name)
	if err != nil {
		return LoadReport{}, err
	}
	return g.load(path)
}

// LoadFile is Load for operator-supplied paths, which may be absolute or
// point outside the saves directory. Never pass it client input.
func (g *Game) LoadFile(path string) (LoadReport, error) {
	return g.load(savefile.ResolvePath(g.tune.Saves.Dir, path))
}

func (g *Game) load(path string) (LoadReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rep := LoadReport{Path: path}
	doc, err := savefile.LoadFromPath[board.Record](g.store, path)
	if err != nil {
		g.writeAudit(plog.AuditEntry{Action: "LOAD_FAILED", Path: path, Reason: err.Error()})
		return rep, err
	}
	records, meta := gridcodec.Decode(doc)
	occ, warnings := g.board.Resolve(records, g.cats)
	for _, w := range warnings {
		g.log.Printf("load %s: %s", path, w)
	}

	points, hasPoints := parsePoints(meta)
	if err := g.board.Replace(occ); err != nil {
		return rep, err
	}
	g.reserve = nil
	if hasPoints {
		g.wallet.SetBalance(points)
	} else if v, ok := meta[MetaPoints]; ok {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("ignoring unparsable points %q", v))
	}

	rep.Soldiers = len(occ)
	rep.Points = g.wallet.CurrentBalance()
	rep.Warnings = append(warnings, rep.Warnings...)
	g.log.Printf("loaded %d soldiers from %s", rep.Soldiers, path)
	g.writeAudit(plog.AuditEntry{Action: "LOAD", Path: path, Entries: rep.Soldiers, Points: rep.Points})
	return rep, nil
}

func parsePoints(meta map[string]string) (int, bool) {
	v, ok := meta[MetaPoints]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (g *Game) writeAudit(e plog.AuditEntry) {
	if g.audit == nil {
		return
	}
	e.Time = time.Now().UTC().Format(time.RFC3339Nano)
	if err := g.audit.WriteAudit(e); err != nil {
		g.log.Printf("audit log: %v", err)
	}
}

type SlotState struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Type   string `json:"soldierTypeName,omitempty"`
	Tier   string `json:"soldierTierName,omitempty"`
	Filled bool   `json:"filled"`
}

type State struct {
	Points  int            `json:"points"`
	Cols    int            `json:"cols"`
	Rows    int            `json:"rows"`
	Slots   []SlotState    `json:"slots"`
	Reserve []board.Record `json:"reserve"`
}

func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := State{
		Points:  g.wallet.CurrentBalance(),
		Cols:    g.board.Cols(),
		Rows:    g.board.Rows(),
		Reserve: make([]board.Record, 0, len(g.reserve)),
	}
	occ := g.board.Occupied()
	for _, c := range g.board.Slots() {
		ss := SlotState{X: c.X, Y: c.Y}
		if s, ok := occ[c]; ok {
			ss.Type, ss.Tier, ss.Filled = s.Type.Name, s.Tier.Name, true
		}
		st.Slots = append(st.Slots, ss)
	}
	for _, s := range g.reserve {
		st.Reserve = append(st.Reserve, board.Record{SoldierTypeName: s.Type.Name, SoldierTierName: s.Tier.Name})
	}
	return st
}

// Occupied exposes the placed soldiers keyed by slot.
func (g *Game) Occupied() map[grid.Coord]board.Soldier {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.board.Occupied()
}
