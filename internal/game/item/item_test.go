package item

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNew(t *testing.T) {
	it, err := New("Rusty Sword", "a rusty sword", "The blade is pitted with age.", 3.5, 10, "sword", "blade")
	require.NoError(t, err)
	assert.Equal(t, KindItem, it.Kind)
	assert.NotEqual(t, uuid.Nil, it.ID)
	assert.Contains(t, it.Aliases, "rusty sword")
	assert.Contains(t, it.Aliases, "sword")
	assert.Contains(t, it.Aliases, "blade")
	assert.NoError(t, it.Validate())
}

func TestNewRejectsEmptyName(t *testing.T) {
	_, err := New("", "desc", "", 1, 0)
	assert.Error(t, err)
}

func TestNewRejectsNegativeWeight(t *testing.T) {
	_, err := New("Feather", "a feather", "", -0.1, 0)
	assert.Error(t, err)
}

func TestNewKey(t *testing.T) {
	roomID := uuid.New()
	key, err := NewKey("Brass Key", "a brass key", "It is cold to the touch.", 0.1, 5, roomID, "key")
	require.NoError(t, err)
	assert.Equal(t, KindKey, key.Kind)
	assert.True(t, key.CanUnlock(roomID))
	assert.False(t, key.CanUnlock(uuid.New()))
	assert.NoError(t, key.Validate())
}

func TestKeyValidateRequiresRoom(t *testing.T) {
	key, err := NewKey("Broken Key", "a broken key", "", 0.1, 0, uuid.New())
	require.NoError(t, err)
	key.UnlocksRoom = uuid.Nil
	assert.Error(t, key.Validate())
}

func TestNewPotion(t *testing.T) {
	p, err := NewPotion("Healing Potion", "a healing potion", "The liquid glows faintly.",
		"You feel your wounds knit closed.", "It smells of honey and herbs.", 0.5, 25, "potion")
	require.NoError(t, err)
	assert.Equal(t, KindPotion, p.Kind)
	assert.Equal(t, "You feel your wounds knit closed.", p.Effects)
	assert.Equal(t, "It smells of honey and herbs.", p.Smell)
}

func TestNewScroll(t *testing.T) {
	s, err := NewScroll("Ancient Scroll", "an ancient scroll", "", "Beware the cellar.", 0.2, 15, "scroll")
	require.NoError(t, err)
	assert.Equal(t, KindScroll, s.Kind)
	assert.Equal(t, "Beware the cellar.", s.Text)
}

func TestAliasesDeduplicatedAndLowered(t *testing.T) {
	it, err := New("Lantern", "a lantern", "", 1, 2, "Lantern", "LAMP", "lamp", " ")
	require.NoError(t, err)
	assert.Equal(t, []string{"lantern", "lamp"}, it.Aliases)
}

func TestResolvePriorityOrder(t *testing.T) {
	// "key" is the name of one item, an alias of another, and the kind of a third.
	byName, err := New("key", "an odd trinket named key", "", 0.1, 0)
	require.NoError(t, err)
	byAlias, err := New("Skeleton Opener", "an opener", "", 0.1, 0, "key")
	require.NoError(t, err)
	byKind, err := NewKey("Brass Key", "a brass key", "", 0.1, 0, uuid.New())
	require.NoError(t, err)

	items := []*Item{byKind, byAlias, byName}

	got, ok := Resolve("key", items)
	require.True(t, ok)
	assert.Same(t, byName, got, "exact name beats alias and kind")

	got, ok = Resolve("key", []*Item{byKind, byAlias})
	require.True(t, ok)
	assert.Same(t, byAlias, got, "alias beats kind")

	got, ok = Resolve("key", []*Item{byKind})
	require.True(t, ok)
	assert.Same(t, byKind, got)
}

func TestResolveCaseInsensitive(t *testing.T) {
	it, err := New("Brass Key", "a brass key", "", 0.1, 0)
	require.NoError(t, err)
	got, ok := Resolve("BRASS KEY", []*Item{it})
	require.True(t, ok)
	assert.Same(t, it, got)
}

func TestResolveMisses(t *testing.T) {
	it, err := New("Sword", "a sword", "", 1, 0)
	require.NoError(t, err)
	_, ok := Resolve("shield", []*Item{it})
	assert.False(t, ok)
	_, ok = Resolve("", []*Item{it})
	assert.False(t, ok)
	_, ok = Resolve("sword", nil)
	assert.False(t, ok)
}

func TestArticle(t *testing.T) {
	assert.Equal(t, "an", Article("apple"))
	assert.Equal(t, "an", Article("Ancient Scroll"))
	assert.Equal(t, "a", Article("sword"))
	assert.Equal(t, "a", Article(""))
}

func TestPropertyResolveOwnName(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[a-z]{1,12}( [a-z]{1,12})?`).Draw(t, "name")
		it, err := New(name, "desc", "", 0, 0)
		require.NoError(t, err)
		got, ok := Resolve(strings.ToUpper(name), []*Item{it})
		require.True(t, ok)
		assert.Same(t, it, got)
	})
}
