package economy

import "sync"

// Wallet holds the player's points. It satisfies gacha.Balance.
type Wallet struct {
	mu     sync.Mutex
	points int
}

func NewWallet(start int) *Wallet {
	if start < 0 {
		start = 0
	}
	return &Wallet{points: start}
}

func (w *Wallet) CurrentBalance() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.points
}

// AddPoints credits n points. Non-positive amounts are ignored.
func (w *Wallet) AddPoints(n int) {
	if n <= 0 {
		return
	}
	w.mu.Lock()
	w.points += n
	w.mu.Unlock()
}

// TrySpend debits n points if the balance covers it.
func (w *Wallet) TrySpend(n int) bool {
	if n < 0 {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if n > w.points {
		return false
	}
	w.points -= n
	return true
}

// SetBalance replaces the balance, e.g. when restoring a save.
func (w *Wallet) SetBalance(n int) {
	if n < 0 {
		n = 0
	}
	w.mu.Lock()
	w.points = n
	w.mu.Unlock()
}
