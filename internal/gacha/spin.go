package gacha

import (
	"errors"
	"fmt"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Balance is the economy a spin is charged against.
type Balance interface {
	CurrentBalance() int
	TrySpend(amount int) bool
}

type RarityMode string

const (
	// RarityShared draws one rarity per spin and applies it to every roll.
	RarityShared RarityMode = "shared"
	// RarityPerRoll draws an independent rarity for each roll.
	RarityPerRoll RarityMode = "per_roll"
)

const DefaultRollCount = 3

type Pick[I, R comparable] struct {
	Item   I
	Rarity R
}

type RollResult[I, R comparable] struct {
	Item   I
	Rarity R
	Picks  []Pick[I, R]
	Cost   int
}

// Machine resolves spins. Rank orders rarities: a higher rank is rarer and
// wins the reduction.
type Machine[I, R comparable] struct {
	Items     []WeightedEntry[I]
	Rarities  []WeightedEntry[R]
	RollCount int
	Cost      int
	Mode      RarityMode
	Rank      func(R) int
	Src       Source
}

// Spin charges Cost against bal and resolves RollCount picks into one result.
// Invalid pools and insufficient funds fail before anything is charged.
func (m *Machine[I, R]) Spin(bal Balance) (RollResult[I, R], error) {
	var res RollResult[I, R]
	if _, err := ValidatePool(m.Items); err != nil {
		return res, fmt.Errorf("items: %w", err)
	}
	if _, err := ValidatePool(m.Rarities); err != nil {
		return res, fmt.Errorf("rarities: %w", err)
	}
	if m.Cost < 0 {
		return res, fmt.Errorf("negative spin cost %d", m.Cost)
	}
	if m.Src == nil {
		return res, fmt.Errorf("gacha: nil random source")
	}
	if bal.CurrentBalance() < m.Cost || !bal.TrySpend(m.Cost) {
		return res, fmt.Errorf("%w: cost %d, balance %d", ErrInsufficientFunds, m.Cost, bal.CurrentBalance())
	}

	n := m.RollCount
	if n <= 0 {
		n = DefaultRollCount
	}
	picks := make([]Pick[I, R], n)

	var shared R
	if m.Mode != RarityPerRoll {
		shared, _ = SelectWeighted(m.Src, m.Rarities)
	}
	for i := range picks {
		picks[i].Item, _ = SelectWeighted(m.Src, m.Items)
		if m.Mode == RarityPerRoll {
			picks[i].Rarity, _ = SelectWeighted(m.Src, m.Rarities)
		} else {
			picks[i].Rarity = shared
		}
	}

	res = Reduce(picks, m.Rank)
	res.Cost = m.Cost
	return res, nil
}

// Reduce collapses picks into one result: the highest-ranked rarity and the
// most frequent item. Ties on either go to the first one seen. A nil rank
// keeps the first pick's rarity.
func Reduce[I, R comparable](picks []Pick[I, R], rank func(R) int) RollResult[I, R] {
	res := RollResult[I, R]{Picks: picks}
	if len(picks) == 0 {
		return res
	}

	res.Rarity = picks[0].Rarity
	if rank != nil {
		best := rank(res.Rarity)
		for _, p := range picks[1:] {
			if r := rank(p.Rarity); r > best {
				best = r
				res.Rarity = p.Rarity
			}
		}
	}

	counts := make(map[I]int, len(picks))
	for _, p := range picks {
		counts[p.Item]++
	}
	bestCount := 0
	for _, p := range picks {
		if counts[p.Item] > bestCount {
			bestCount = counts[p.Item]
			res.Item = p.Item
		}
	}
	return res
}
