package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Catalogs struct {
	Soldiers SoldierCatalog
	Tiers    TierCatalog
}

type SoldierCatalog struct {
	ByName map[string]SoldierType
	Names  []string
	Digest string
}

type SoldierType struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Stats       Stats  `json:"stats"`
}

type Stats struct {
	BulletSpeed float64 `json:"bullet_speed"`
	BulletLife  float64 `json:"bullet_life"`
	AttackSpeed float64 `json:"attack_speed"`
	Health      float64 `json:"health"`
	Dmg         float64 `json:"dmg"`
	Cost        float64 `json:"cost"`
}

type TierCatalog struct {
	ByName  map[string]Tier
	Ordered []Tier // by rank, ascending
	Digest  string
}

// Tier is a rarity class. Higher Rank is rarer; rank 0 is the base tier.
type Tier struct {
	Name      string `json:"name"`
	Rank      int    `json:"rank"`
	Color     string `json:"color"`
	Modifiers Stats  `json:"modifiers"`
}

// Apply returns s with the tier's additive modifiers applied.
func (t Tier) Apply(s Stats) Stats {
	s.BulletSpeed += t.Modifiers.BulletSpeed
	s.BulletLife += t.Modifiers.BulletLife
	s.AttackSpeed += t.Modifiers.AttackSpeed
	s.Health += t.Modifiers.Health
	s.Dmg += t.Modifiers.Dmg
	s.Cost += t.Modifiers.Cost
	return s
}

// DefaultTiers mirrors the shipped tier list.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "Common", Rank: 0, Color: "#FFFFFF"},
		{Name: "Uncommon", Rank: 1, Color: "#00FF00", Modifiers: Stats{BulletSpeed: 5, AttackSpeed: -0.2, Health: 5, Dmg: 5}},
		{Name: "Rare", Rank: 2, Color: "#FFEB04", Modifiers: Stats{BulletSpeed: 7, AttackSpeed: -0.3, Health: 10, Dmg: 7}},
		{Name: "SuperRare", Rank: 3, Color: "#FF8000", Modifiers: Stats{BulletSpeed: 8, AttackSpeed: -0.4, Health: 15, Dmg: 10}},
		{Name: "Ultra", Rank: 4, Color: "#800080", Modifiers: Stats{BulletSpeed: 10, AttackSpeed: -0.6, Health: 30, Dmg: 20}},
	}
}

// Load reads soldiers.json (required) and tiers.json (optional, defaults to
// DefaultTiers) from configDir.
func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadSoldiers(filepath.Join(configDir, "soldiers.json"), &c.Soldiers); err != nil {
		return nil, err
	}
	if err := loadTiers(filepath.Join(configDir, "tiers.json"), &c.Tiers); err != nil {
		return nil, err
	}
	return &c, nil
}

// New builds catalogs from in-memory definitions.
func New(soldiers []SoldierType, tiers []Tier) (*Catalogs, error) {
	var c Catalogs
	raw, _ := json.Marshal(soldiers)
	if err := buildSoldiers(raw, soldiers, &c.Soldiers); err != nil {
		return nil, err
	}
	if tiers == nil {
		tiers = DefaultTiers()
	}
	raw, _ = json.Marshal(tiers)
	if err := buildTiers(raw, tiers, &c.Tiers); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadSoldiers(path string, out *SoldierCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []SoldierType
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("soldiers.json: %w", err)
	}
	return buildSoldiers(raw, defs, out)
}

func buildSoldiers(raw []byte, defs []SoldierType, out *SoldierCatalog) error {
	out.Digest = sha256Hex(raw)
	out.ByName = map[string]SoldierType{}
	for _, d := range defs {
		if d.Name == "" {
			return fmt.Errorf("soldiers.json: empty name")
		}
		if _, dup := out.ByName[d.Name]; dup {
			return fmt.Errorf("soldiers.json: duplicate name %q", d.Name)
		}
		if d.DisplayName == "" {
			d.DisplayName = d.Name
		}
		out.ByName[d.Name] = d
	}
	out.Names = make([]string, 0, len(out.ByName))
	for n := range out.ByName {
		out.Names = append(out.Names, n)
	}
	sort.Strings(out.Names)
	return nil
}

func loadTiers(path string, out *TierCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			defs := DefaultTiers()
			b, _ := json.Marshal(defs)
			return buildTiers(b, defs, out)
		}
		return err
	}
	var defs []Tier
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("tiers.json: %w", err)
	}
	return buildTiers(raw, defs, out)
}

func buildTiers(raw []byte, defs []Tier, out *TierCatalog) error {
	if len(defs) == 0 {
		return fmt.Errorf("tiers.json: no tiers")
	}
	out.Digest = sha256Hex(raw)
	out.ByName = map[string]Tier{}
	ranks := map[int]string{}
	for _, t := range defs {
		if t.Name == "" {
			return fmt.Errorf("tiers.json: empty name")
		}
		if _, dup := out.ByName[t.Name]; dup {
			return fmt.Errorf("tiers.json: duplicate name %q", t.Name)
		}
		if other, dup := ranks[t.Rank]; dup {
			return fmt.Errorf("tiers.json: %q and %q share rank %d", other, t.Name, t.Rank)
		}
		ranks[t.Rank] = t.Name
		out.ByName[t.Name] = t
	}
	out.Ordered = append([]Tier(nil), defs...)
	sort.Slice(out.Ordered, func(i, j int) bool { return out.Ordered[i].Rank < out.Ordered[j].Rank })
	return nil
}

// ResolveByName finds a soldier type by its asset name. An exact match wins;
// otherwise names are compared trimmed and case-insensitively.
func (c *Catalogs) ResolveByName(name string) (SoldierType, bool) {
	if st, ok := c.Soldiers.ByName[name]; ok {
		return st, true
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return SoldierType{}, false
	}
	for _, n := range c.Soldiers.Names {
		if strings.ToLower(n) == key {
			return c.Soldiers.ByName[n], true
		}
	}
	return SoldierType{}, false
}

func (c *Catalogs) TierByName(name string) (Tier, bool) {
	t, ok := c.Tiers.ByName[name]
	return t, ok
}

// DefaultTier is the lowest-ranked tier.
func (c *Catalogs) DefaultTier() Tier {
	return c.Tiers.Ordered[0]
}

// TierRank returns the rank of the named tier, or -1 when unknown.
func (c *Catalogs) TierRank(name string) int {
	if t, ok := c.Tiers.ByName[name]; ok {
		return t.Rank
	}
	return -1
}
