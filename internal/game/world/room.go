package world

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/dungeon/internal/game/item"
)

// ErrWrongKey is returned when an unlock attempt uses a key that does not
// open the target room.
var ErrWrongKey = errors.New("wrong key for this room")

// Placement is an item sitting in a room along with the phrase used to
// mention it in the room's narration.
type Placement struct {
	Item *item.Item
	// Phrase is the full sentence used in narration, e.g.
	// "On the floor you see a rusty sword.". Empty means a default
	// sentence is generated from the item's description.
	Phrase string
}

// NPC is a character standing in a room.
type NPC struct {
	Name string
	// Dialogue is what the NPC says when talked to.
	Dialogue string
	// Description is shown when the NPC is examined.
	Description string
	// Aliases are alternate target words for the NPC.
	Aliases []string
}

// Matches reports whether word names this NPC.
func (n *NPC) Matches(word string) bool {
	word = strings.ToLower(strings.TrimSpace(word))
	if strings.ToLower(n.Name) == word {
		return true
	}
	for _, a := range n.Aliases {
		if strings.ToLower(a) == word {
			return true
		}
	}
	return false
}

// Room is a single location in the dungeon.
type Room struct {
	mu sync.RWMutex

	// ID is the runtime identity, assigned when the room is created.
	ID uuid.UUID
	// RefID is the stable identifier from the world file, used by
	// connections and saved games.
	RefID string
	// Name is the display name.
	Name string
	// Description is the narration shown on entry and by "look".
	Description string
	// RoomType names what the room is, e.g. "cellar"; used in exit
	// narration. Empty falls back to "room".
	RoomType string
	// Theme names the visual theme from the world file.
	Theme string
	// AssetRef points at the art asset shown for this room.
	AssetRef string

	// Locked rooms refuse entry until unlocked with the right key.
	Locked bool
	// Dark rooms narrate darkness instead of their description.
	Dark bool

	// enriched overrides Description when set.
	enriched string

	contents []Placement
	npcs     []*NPC
}

// NewRoom creates a room.
//
// Precondition: refID and name must be non-empty.
// Postcondition: The room has a fresh runtime ID and no contents.
func NewRoom(refID, name, description, roomType string) (*Room, error) {
	if refID == "" {
		return nil, errors.New("room ref id must not be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("room %q: name must not be empty", refID)
	}
	return &Room{
		ID:          uuid.New(),
		RefID:       refID,
		Name:        name,
		Description: description,
		RoomType:    roomType,
	}, nil
}

// Place puts an item in the room with an optional narration phrase.
func (r *Room) Place(it *item.Item, phrase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contents = append(r.contents, Placement{Item: it, Phrase: phrase})
}

// AddNPC puts an NPC in the room.
func (r *Room) AddNPC(n *NPC) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.npcs = append(r.npcs, n)
}

// Items returns a snapshot of the items in the room.
func (r *Room) Items() []*item.Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]*item.Item, 0, len(r.contents))
	for _, p := range r.contents {
		items = append(items, p.Item)
	}
	return items
}

// NPCs returns a snapshot of the NPCs in the room.
func (r *Room) NPCs() []*NPC {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*NPC, len(r.npcs))
	copy(out, r.npcs)
	return out
}

// FindItem resolves a target word against the room's contents using the
// shared priority order: name, then alias, then kind.
func (r *Room) FindItem(word string) (*item.Item, bool) {
	return item.Resolve(word, r.Items())
}

// FindNPC resolves a target word against the room's NPCs.
func (r *Room) FindNPC(word string) (*NPC, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil, false
	}
	for _, n := range r.npcs {
		if n.Matches(word) {
			return n, true
		}
	}
	return nil, false
}

// TakeItem removes the item named by word from the room and returns it.
//
// Postcondition: On success the item is no longer in the room's contents.
// Returns item.ErrNotFound when nothing matches.
func (r *Room) TakeItem(word string) (*item.Item, error) {
	it, ok := r.FindItem(word)
	if !ok {
		return nil, fmt.Errorf("take %q from room %s: %w", word, r.RefID, item.ErrNotFound)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.contents {
		if p.Item.ID == it.ID {
			r.contents = append(r.contents[:i], r.contents[i+1:]...)
			return it, nil
		}
	}
	return nil, fmt.Errorf("take %q from room %s: %w", word, r.RefID, item.ErrNotFound)
}

// RemoveItem removes a specific item instance from the room.
//
// Postcondition: Returns item.ErrNotFound when the instance is not present.
func (r *Room) RemoveItem(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.contents {
		if p.Item.ID == id {
			r.contents = append(r.contents[:i], r.contents[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove item %s from room %s: %w", id, r.RefID, item.ErrNotFound)
}

// Unlock opens the room using the given key. A nil key force-unlocks,
// which is the administrative escape hatch; callers in the command path
// always pass a key.
//
// Postcondition: Returns ErrWrongKey and leaves the room locked when the
// key does not open this room. A second unlock with the right key is a
// no-op.
func (r *Room) Unlock(key *item.Item) error {
	if key != nil && !key.CanUnlock(r.ID) {
		return fmt.Errorf("unlock room %s with %q: %w", r.RefID, key.Name, ErrWrongKey)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Locked = false
	return nil
}

// Lock marks the room locked.
func (r *Room) Lock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Locked = true
}

// SetEnriched installs an enriched description that overrides the base
// one in narration.
func (r *Room) SetEnriched(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enriched = text
}

// CurrentDescription returns the enriched description when one is set,
// otherwise the base description. Dark rooms describe only darkness.
func (r *Room) CurrentDescription() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Dark {
		return "It is pitch dark. You cannot see a thing."
	}
	if r.enriched != "" {
		return r.enriched
	}
	return r.Description
}

// Describe renders the room narration: the current description followed
// by one sentence per item placement and per NPC. Dark rooms hide their
// contents.
func (r *Room) Describe() string {
	desc := r.CurrentDescription()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Dark {
		return desc
	}

	var b strings.Builder
	b.WriteString(desc)
	for _, p := range r.contents {
		b.WriteString(" ")
		if p.Phrase != "" {
			b.WriteString(p.Phrase)
		} else {
			b.WriteString(fmt.Sprintf("You see %s %s.", item.Article(p.Item.Name), strings.ToLower(p.Item.Name)))
		}
	}
	for _, n := range r.npcs {
		b.WriteString(fmt.Sprintf(" %s is here.", n.Name))
	}
	return b.String()
}

// TypeName returns the room's type for exit narration, defaulting to "room".
func (r *Room) TypeName() string {
	if r.RoomType == "" {
		return "room"
	}
	return r.RoomType
}
