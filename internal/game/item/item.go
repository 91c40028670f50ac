// Package item provides the item taxonomy for the dungeon: plain items,
// keys, potions, and scrolls, plus target-word resolution against item
// collections.
package item

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind constants for Item.Kind.
const (
	KindItem   = "item"
	KindKey    = "key"
	KindPotion = "potion"
	KindScroll = "scroll"
)

// validKinds is the set of valid item kinds.
var validKinds = map[string]bool{
	KindItem:   true,
	KindKey:    true,
	KindPotion: true,
	KindScroll: true,
}

// ErrNotFound is returned when an item lookup or removal finds no match.
var ErrNotFound = errors.New("item not found")

// Item is a thing that can sit in a room or a player's inventory.
// Kind selects which of the kind-specific fields are meaningful:
// keys carry UnlocksRoom, potions carry Effects and Smell, scrolls carry Text.
type Item struct {
	// ID is the runtime identity, assigned at creation.
	ID uuid.UUID
	// Name is the display name.
	Name string
	// Aliases are alternate target words; always includes the lowercased name.
	Aliases []string
	// Description is the short description shown in room narration.
	Description string
	// Detail is the longer text shown by examine.
	Detail string
	// Weight must be non-negative.
	Weight float64
	// Value is the item's monetary value.
	Value float64
	// Kind is one of the Kind constants.
	Kind string

	// UnlocksRoom is the runtime ID of the room a key opens.
	UnlocksRoom uuid.UUID
	// Effects is the potion's drink narration.
	Effects string
	// Smell is the potion's smell narration.
	Smell string
	// Text is the scroll's written content.
	Text string
	// Script is an optional Lua script name evaluated by "use". Empty = none.
	Script string
}

// New creates a plain item.
//
// Precondition: name must be non-empty; weight must be >= 0.
// Postcondition: Returns an Item whose aliases include its lowercased name.
func New(name, description, detail string, weight, value float64, aliases ...string) (*Item, error) {
	return build(KindItem, name, description, detail, weight, value, aliases)
}

// NewKey creates a key that unlocks the room with the given runtime ID.
//
// Postcondition: Returned item has Kind "key" and UnlocksRoom set.
func NewKey(name, description, detail string, weight, value float64, unlocks uuid.UUID, aliases ...string) (*Item, error) {
	it, err := build(KindKey, name, description, detail, weight, value, aliases)
	if err != nil {
		return nil, err
	}
	it.UnlocksRoom = unlocks
	return it, nil
}

// NewPotion creates a potion with drink and smell narration.
//
// Postcondition: Returned item has Kind "potion".
func NewPotion(name, description, detail, effects, smell string, weight, value float64, aliases ...string) (*Item, error) {
	it, err := build(KindPotion, name, description, detail, weight, value, aliases)
	if err != nil {
		return nil, err
	}
	it.Effects = effects
	it.Smell = smell
	return it, nil
}

// NewScroll creates a scroll carrying readable text.
//
// Postcondition: Returned item has Kind "scroll".
func NewScroll(name, description, detail, text string, weight, value float64, aliases ...string) (*Item, error) {
	it, err := build(KindScroll, name, description, detail, weight, value, aliases)
	if err != nil {
		return nil, err
	}
	it.Text = text
	return it, nil
}

func build(kind, name, description, detail string, weight, value float64, aliases []string) (*Item, error) {
	if name == "" {
		return nil, errors.New("item name must not be empty")
	}
	if weight < 0 {
		return nil, fmt.Errorf("item %q: weight must be non-negative, got %v", name, weight)
	}

	it := &Item{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Detail:      detail,
		Weight:      weight,
		Value:       value,
		Kind:        kind,
	}

	// The name is always a valid target word for itself.
	it.Aliases = append(it.Aliases, strings.ToLower(name))
	for _, a := range aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || it.hasAlias(a) {
			continue
		}
		it.Aliases = append(it.Aliases, a)
	}

	return it, nil
}

// Validate checks that the item satisfies its invariants.
//
// Postcondition: Returns nil iff the item is well-formed.
func (it *Item) Validate() error {
	var errs []error
	if it.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if !validKinds[it.Kind] {
		errs = append(errs, fmt.Errorf("kind must be one of item, key, potion, scroll; got %q", it.Kind))
	}
	if it.Weight < 0 {
		errs = append(errs, errors.New("weight must be >= 0"))
	}
	if !it.hasAlias(strings.ToLower(it.Name)) {
		errs = append(errs, errors.New("aliases must include the item's own name"))
	}
	if it.Kind == KindKey && it.UnlocksRoom == uuid.Nil {
		errs = append(errs, errors.New("key must reference the room it unlocks"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("item validation failed: %v", errs)
	}
	return nil
}

func (it *Item) hasAlias(word string) bool {
	for _, a := range it.Aliases {
		if a == word {
			return true
		}
	}
	return false
}

// CanUnlock reports whether this item is a key for the given room.
func (it *Item) CanUnlock(roomID uuid.UUID) bool {
	return it.Kind == KindKey && it.UnlocksRoom == roomID
}

// Resolve matches a target word against a collection of items.
// Matching runs in priority order across the whole collection: exact
// case-insensitive name, then alias, then kind tag. First hit wins.
//
// Postcondition: Returns (item, true) on a match, or (nil, false).
func Resolve(word string, items []*Item) (*Item, bool) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil, false
	}
	for _, it := range items {
		if strings.ToLower(it.Name) == word {
			return it, true
		}
	}
	for _, it := range items {
		if it.hasAlias(word) {
			return it, true
		}
	}
	for _, it := range items {
		if it.Kind == word {
			return it, true
		}
	}
	return nil, false
}

// Article returns "an" for words starting with a vowel, otherwise "a".
//
// Precondition: word should be non-empty; an empty word yields "a".
func Article(word string) string {
	if word == "" {
		return "a"
	}
	switch word[0] {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return "an"
	}
	return "a"
}
