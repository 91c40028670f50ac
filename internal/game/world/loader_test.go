package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/item"
)

const testWorldYAML = `
scenario:
  name: Mysterious Land
  description: A land of mystery.
  opening: You wake up in a damp cellar.
themes:
  - name: stone
    description: Rough-hewn stone.
    type: chamber
    asset: rooms/stone.png
rooms:
  - id: cellar
    name: Cellar
    type: cellar
    theme: stone
    description: A damp cellar.
    items:
      - name: Brass Key
        kind: key
        unlocks: vault
        description: a brass key
        phrase: On a hook hangs a brass key.
        weight: 0.1
        aliases: [key]
      - name: Healing Potion
        kind: potion
        description: a healing potion
        effects: You feel better.
        smell: It smells of honey.
        weight: 0.5
  - id: hall
    name: Hall
    description: A grand hall.
    npcs:
      - name: Old Man
        dialogue: Beware the vault.
  - id: vault
    name: Vault
    type: vault
    description: A sealed vault.
    locked: true
connections:
  - from: cellar
    to: hall
    direction: north
  - from: hall
    to: vault
    direction: east
start: cellar
`

func TestLoadWorldFromBytes(t *testing.T) {
	w, err := LoadWorldFromBytes([]byte(testWorldYAML), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "Mysterious Land", w.Scenario.Name)
	assert.Equal(t, "You wake up in a damp cellar.", w.Scenario.Opening)
	assert.Equal(t, 3, w.Graph.Len())
	assert.Equal(t, "cellar", w.Start.RefID)
	assert.True(t, w.Graph.IsVisited(w.Start.ID))

	// Explicit room type wins over the theme's; the theme still supplies
	// the asset.
	assert.Equal(t, "cellar", w.Start.RoomType)
	assert.Equal(t, "rooms/stone.png", w.Start.AssetRef)

	hall, err := w.Graph.ConnectedRoom(w.Start.ID, DirectionNorth)
	require.NoError(t, err)
	assert.Equal(t, "hall", hall.RefID)

	vault, err := w.Graph.ConnectedRoom(hall.ID, DirectionEast)
	require.NoError(t, err)
	assert.True(t, vault.Locked)

	key, ok := w.Start.FindItem("key")
	require.True(t, ok)
	assert.Equal(t, item.KindKey, key.Kind)
	assert.True(t, key.CanUnlock(vault.ID))

	potion, ok := w.Start.FindItem("potion")
	require.True(t, ok)
	assert.Equal(t, "You feel better.", potion.Effects)

	npc, ok := hall.FindNPC("old man")
	require.True(t, ok)
	assert.Equal(t, "Beware the vault.", npc.Dialogue)
}

func TestLoadSkipsBadRecords(t *testing.T) {
	const doc = `
rooms:
  - id: cellar
    name: Cellar
    description: ok
    items:
      - name: Mystery
        kind: gadget
      - name: ""
        kind: item
      - name: Orphan Key
        kind: key
        unlocks: nowhere
  - id: ""
    name: Nameless
connections:
  - from: cellar
    to: missing
    direction: north
  - from: cellar
    to: cellar
    direction: sideways
start: cellar
`
	w, err := LoadWorldFromBytes([]byte(doc), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 1, w.Graph.Len())
	assert.Empty(t, w.Start.Items())
	assert.Empty(t, w.Graph.ConnectedRooms(w.Start.ID))
}

func TestLoadReconnectReplacesOccupiedDirection(t *testing.T) {
	const doc = `
rooms:
  - id: a
    name: A
    description: a
  - id: b
    name: B
    description: b
  - id: c
    name: C
    description: c
connections:
  - from: a
    to: b
    direction: east
  - from: a
    to: c
    direction: east
start: a
`
	w, err := LoadWorldFromBytes([]byte(doc), zap.NewNop())
	require.NoError(t, err)

	// The later record wins; the prior connection is torn down on both
	// endpoints.
	got, err := w.Graph.ConnectedRoom(w.Start.ID, DirectionEast)
	require.NoError(t, err)
	assert.Equal(t, "c", got.RefID)

	b, err := w.Graph.RoomByRef("b")
	require.NoError(t, err)
	assert.Empty(t, w.Graph.ConnectedRooms(b.ID))
}

func TestLoadFatalCases(t *testing.T) {
	_, err := LoadWorldFromBytes([]byte("rooms: 12"), zap.NewNop())
	assert.Error(t, err)

	_, err = LoadWorldFromBytes([]byte("rooms: []\nstart: a"), zap.NewNop())
	assert.Error(t, err)

	_, err = LoadWorldFromBytes([]byte("rooms:\n  - id: a\n    name: A\nstart: missing"), zap.NewNop())
	assert.ErrorIs(t, err, ErrUnknownRoom)
}
