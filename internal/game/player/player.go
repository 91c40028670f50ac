// Package player models the adventurer: identity and carried inventory.
package player

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/dungeon/internal/game/item"
)

// Player is one adventurer. All methods are safe for concurrent use.
type Player struct {
	mu sync.RWMutex

	// ID is the runtime identity.
	ID uuid.UUID
	// Name is the login name.
	Name string

	inventory []*item.Item
}

// New creates a player with an empty inventory.
//
// Precondition: name must be non-empty.
func New(name string) (*Player, error) {
	if name == "" {
		return nil, errors.New("player name must not be empty")
	}
	return &Player{ID: uuid.New(), Name: name}, nil
}

// Take adds an item to the inventory.
func (p *Player) Take(it *item.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inventory = append(p.inventory, it)
}

// Items returns a snapshot of the inventory.
func (p *Player) Items() []*item.Item {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*item.Item, len(p.inventory))
	copy(out, p.inventory)
	return out
}

// FindItem resolves a target word against the inventory using the shared
// priority order: name, then alias, then kind.
func (p *Player) FindItem(word string) (*item.Item, bool) {
	return item.Resolve(word, p.Items())
}

// Drop removes the item named by word from the inventory and returns it.
//
// Postcondition: Returns item.ErrNotFound when nothing matches; the
// inventory is unchanged in that case.
func (p *Player) Drop(word string) (*item.Item, error) {
	it, ok := p.FindItem(word)
	if !ok {
		return nil, fmt.Errorf("drop %q: %w", word, item.ErrNotFound)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, held := range p.inventory {
		if held.ID == it.ID {
			p.inventory = append(p.inventory[:i], p.inventory[i+1:]...)
			return it, nil
		}
	}
	return nil, fmt.Errorf("drop %q: %w", word, item.ErrNotFound)
}

// Remove removes a specific item instance from the inventory.
//
// Postcondition: Returns item.ErrNotFound when the instance is not held.
func (p *Player) Remove(id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, held := range p.inventory {
		if held.ID == id {
			p.inventory = append(p.inventory[:i], p.inventory[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove item %s: %w", id, item.ErrNotFound)
}

// CarriedWeight returns the total weight of the inventory.
func (p *Player) CarriedWeight() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var total float64
	for _, it := range p.inventory {
		total += it.Weight
	}
	return total
}

// InventoryNarration renders the inventory as prose: each entry is
// "name (a/an kind)", comma-joined with a trailing "and".
func (p *Player) InventoryNarration() string {
	items := p.Items()
	if len(items) == 0 {
		return "You are not carrying anything."
	}
	entries := make([]string, len(items))
	for i, it := range items {
		entries[i] = fmt.Sprintf("%s (%s %s)", it.Name, item.Article(it.Kind), it.Kind)
	}
	if len(entries) == 1 {
		return fmt.Sprintf("You are carrying %s.", entries[0])
	}
	return fmt.Sprintf("You are carrying %s and %s.",
		strings.Join(entries[:len(entries)-1], ", "), entries[len(entries)-1])
}
