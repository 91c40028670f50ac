package command

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/item"
	"github.com/cory-johannsen/dungeon/internal/game/player"
	"github.com/cory-johannsen/dungeon/internal/game/session"
	"github.com/cory-johannsen/dungeon/internal/game/world"
)

const interpWorldYAML = `
scenario:
  name: Test Dungeon
  opening: You wake up at the entrance.
rooms:
  - id: start
    name: Entrance
    type: entrance
    description: A narrow entrance.
    asset: rooms/entrance.png
    items:
      - name: Healing Potion
        kind: potion
        description: a healing potion
        effects: You feel better.
        smell: It smells of honey.
      - name: Ancient Scroll
        kind: scroll
        description: an ancient scroll
        text: Beware the vault.
  - id: hall
    name: Hall
    type: hall
    description: A grand hall.
    asset: rooms/hall.png
    items:
      - name: Rusty Key
        kind: key
        unlocks: vault
        description: a rusty key
        detail: The teeth are worn almost smooth.
        value: 10
        aliases: [key]
    npcs:
      - name: Old Man
        description: He leans on a gnarled cane.
  - id: vault
    name: Vault
    type: vault
    description: A sealed vault.
    locked: true
connections:
  - from: start
    to: hall
    direction: north
  - from: hall
    to: vault
    direction: east
start: start
`

func newWorldFactory() WorldFactory {
	return func() (*world.World, error) {
		return world.LoadWorldFromBytes([]byte(interpWorldYAML), zap.NewNop())
	}
}

func testFixture(t *testing.T) (*Interpreter, *session.Session) {
	t.Helper()
	w, err := newWorldFactory()()
	require.NoError(t, err)
	p, err := player.New("rheull")
	require.NoError(t, err)
	sess, err := session.New(p, w)
	require.NoError(t, err)
	return NewInterpreter(zap.NewNop(), newWorldFactory(), nil), sess
}

func currentRef(t *testing.T, sess *session.Session) string {
	t.Helper()
	room, err := sess.CurrentRoom()
	require.NoError(t, err)
	return room.RefID
}

func TestExecuteUnknownCommand(t *testing.T) {
	interp, sess := testFixture(t)
	res := interp.Execute(sess, "xyzzy nonsense")
	assert.Equal(t, ActionNone, res.Action)
	assert.Contains(t, defaultResponses, res.Message)
	assert.Equal(t, "start", currentRef(t, sess), "state unchanged")
	assert.Empty(t, sess.Player.Items())
}

func TestExecuteDenylistOutranksHandlers(t *testing.T) {
	interp, sess := testFixture(t)
	res := interp.Execute(sess, "go north damn it")
	assert.Equal(t, ActionMove, res.Action)
	assert.Contains(t, rebukes, res.Message)
	assert.Equal(t, "start", currentRef(t, sess), "no handler ran")
}

func TestExecuteMoveNorthAndBack(t *testing.T) {
	interp, sess := testFixture(t)

	res := interp.Execute(sess, "go north")
	assert.Equal(t, ActionMove, res.Action)
	assert.Contains(t, res.Message, "You move north.")
	assert.Contains(t, res.Message, "A grand hall.")
	assert.Equal(t, "rooms/hall.png", res.AssetRef)
	assert.Equal(t, "hall", currentRef(t, sess))

	hall, err := sess.World.Graph.RoomByRef("hall")
	require.NoError(t, err)
	assert.True(t, sess.World.Graph.IsVisited(hall.ID))
	assert.Empty(t, sess.Player.Items(), "movement leaves inventory untouched")

	res = interp.Execute(sess, "go south")
	assert.Contains(t, res.Message, "You move south.")
	assert.Equal(t, "start", currentRef(t, sess))
}

func TestExecuteMoveFirstVisitScores(t *testing.T) {
	interp, sess := testFixture(t)
	interp.Execute(sess, "go north")
	assert.Equal(t, discoveryPoints, sess.CurrentScore())
	interp.Execute(sess, "go south")
	interp.Execute(sess, "go north")
	assert.Equal(t, discoveryPoints, sess.CurrentScore(), "revisits score nothing")
}

func TestExecuteMoveNoExit(t *testing.T) {
	interp, sess := testFixture(t)
	res := interp.Execute(sess, "go west")
	assert.Equal(t, "You can't go that direction.", res.Message)
	assert.Equal(t, "start", currentRef(t, sess))
}

func TestExecuteMovePrompts(t *testing.T) {
	interp, sess := testFixture(t)

	res := interp.Execute(sess, "move")
	assert.Equal(t, "What direction do you want to move in? You can go north.", res.Message)

	res = interp.Execute(sess, "move sideways")
	assert.Equal(t, "You can't go 'sideways'. What direction do you want to move in? You can go north.", res.Message)
}

func TestExecuteMoveStuck(t *testing.T) {
	interp, sess := testFixture(t)
	hall, err := sess.World.Graph.RoomByRef("hall")
	require.NoError(t, err)
	start, err := sess.World.Graph.RoomByRef("start")
	require.NoError(t, err)
	vault, err := sess.World.Graph.RoomByRef("vault")
	require.NoError(t, err)
	require.NoError(t, sess.World.Graph.Disconnect(start.ID, hall.ID))
	require.NoError(t, sess.World.Graph.Disconnect(hall.ID, vault.ID))

	res := interp.Execute(sess, "move")
	assert.Equal(t, "You are stuck! There are no exits from this room.", res.Message)
}

func TestExecuteMoveLockedRoom(t *testing.T) {
	interp, sess := testFixture(t)
	interp.Execute(sess, "go north")

	res := interp.Execute(sess, "go east")
	assert.Equal(t, "The way east is locked.", res.Message)
	assert.Equal(t, "hall", currentRef(t, sess))
}

func TestExecuteTakeExamineDrop(t *testing.T) {
	interp, sess := testFixture(t)
	interp.Execute(sess, "go north")

	res := interp.Execute(sess, "take key")
	assert.Equal(t, ActionTake, res.Action)
	assert.Equal(t, "You take the rusty key.", res.Message)

	hall, err := sess.CurrentRoom()
	require.NoError(t, err)
	_, stillThere := hall.FindItem("key")
	assert.False(t, stillThere, "removed from the room")
	held, ok := sess.Player.FindItem("key")
	require.True(t, ok, "added to inventory")
	assert.Equal(t, "Rusty Key", held.Name)

	res = interp.Execute(sess, "examine key")
	assert.Contains(t, res.Message, "The teeth are worn almost smooth.")

	res = interp.Execute(sess, "take key")
	assert.Equal(t, "You already have the rusty key.", res.Message)

	// TAKE then DROP restores the prior state.
	res = interp.Execute(sess, "drop key")
	assert.Equal(t, "You drop the rusty key.", res.Message)
	assert.Empty(t, sess.Player.Items())
	_, back := hall.FindItem("key")
	assert.True(t, back)
}

func TestExecuteTakeScoresItemValue(t *testing.T) {
	interp, sess := testFixture(t)
	interp.Execute(sess, "go north")
	before := sess.CurrentScore()
	interp.Execute(sess, "take key")
	assert.Equal(t, before+10, sess.CurrentScore())
}

func TestExecuteTakeWithoutPlayer(t *testing.T) {
	interp, sess := testFixture(t)
	sess.Player = nil
	interp.Execute(sess, "go north")
	res := interp.Execute(sess, "take key")
	assert.Equal(t, "You have nobody to carry that.", res.Message)
}

func TestExecuteTargetPrompts(t *testing.T) {
	interp, sess := testFixture(t)

	res := interp.Execute(sess, "examine")
	assert.Equal(t, "What do you want to examine?", res.Message)

	res = interp.Execute(sess, "examine the unicorn")
	assert.Equal(t, "I don't see anything called 'the unicorn'.", res.Message)
}

func TestExecuteExamineFallsBackToArticle(t *testing.T) {
	interp, sess := testFixture(t)
	res := interp.Execute(sess, "examine scroll")
	assert.Equal(t, "You examine the ancient scroll. It's an ancient scroll.", res.Message)
}

func TestExecuteExamineNPC(t *testing.T) {
	interp, sess := testFixture(t)
	interp.Execute(sess, "go north")
	res := interp.Execute(sess, "examine old man")
	assert.Equal(t, "You examine Old Man. He leans on a gnarled cane.", res.Message)
}

func TestExecutePotionAndScroll(t *testing.T) {
	interp, sess := testFixture(t)

	res := interp.Execute(sess, "drink potion")
	assert.Equal(t, "You drink the healing potion. You feel better.", res.Message)

	res = interp.Execute(sess, "smell potion")
	assert.Equal(t, "You smell the healing potion. It smells of honey.", res.Message)

	res = interp.Execute(sess, "read scroll")
	assert.Equal(t, "You read the scroll:\n\nBeware the vault.", res.Message)

	res = interp.Execute(sess, "eat scroll")
	assert.Equal(t, "You can't eat this.", res.Message)

	res = interp.Execute(sess, "drink scroll")
	assert.Equal(t, "You can't drink this.", res.Message)

	res = interp.Execute(sess, "read potion")
	assert.Equal(t, "You can't read this.", res.Message)
}

func TestExecuteStubs(t *testing.T) {
	interp, sess := testFixture(t)
	interp.Execute(sess, "go north")
	for _, cmd := range []string{"talk old man", "attack old man", "give key"} {
		res := interp.Execute(sess, cmd)
		assert.Equal(t, "You can't do that yet.", res.Message, cmd)
	}
}

func TestExecuteUseKeyUnlocks(t *testing.T) {
	interp, sess := testFixture(t)
	interp.Execute(sess, "go north")
	interp.Execute(sess, "take key")

	res := interp.Execute(sess, "use key")
	assert.Equal(t, "You unlock the vault to the east.", res.Message)

	res = interp.Execute(sess, "go east")
	assert.Contains(t, res.Message, "You move east.")
	assert.Equal(t, "vault", currentRef(t, sess))
}

func TestExecuteUseWrongKey(t *testing.T) {
	interp, sess := testFixture(t)
	interp.Execute(sess, "go north")
	wrong, err := item.NewKey("Iron Key", "an iron key", "", 0.1, 0, sess.World.Start.ID, "ironkey")
	require.NoError(t, err)
	sess.Player.Take(wrong)

	res := interp.Execute(sess, "use ironkey")
	assert.Equal(t, "That key doesn't fit any lock here.", res.Message)

	res = interp.Execute(sess, "go east")
	assert.Equal(t, "The way east is locked.", res.Message)
}

func TestExecuteUseKeyNothingLocked(t *testing.T) {
	interp, sess := testFixture(t)
	interp.Execute(sess, "go north")
	interp.Execute(sess, "take key")
	interp.Execute(sess, "use key")

	res := interp.Execute(sess, "use key")
	assert.Equal(t, "There is nothing to unlock here.", res.Message)
}

type fakeScripts struct {
	lastScript string
	msg        string
	err        error
}

func (f *fakeScripts) Run(script string, it *item.Item, sess *session.Session) (string, error) {
	f.lastScript = script
	return f.msg, f.err
}

func TestExecuteUseScriptedItem(t *testing.T) {
	interp, sess := testFixture(t)
	scripts := &fakeScripts{msg: "The lantern flares to life."}
	interp.scripts = scripts

	lantern, err := item.New("Lantern", "a lantern", "", 1, 0)
	require.NoError(t, err)
	lantern.Script = "lantern"
	sess.Player.Take(lantern)

	res := interp.Execute(sess, "use lantern")
	assert.Equal(t, "The lantern flares to life.", res.Message)
	assert.Equal(t, "lantern", scripts.lastScript)

	scripts.err = errors.New("boom")
	res = interp.Execute(sess, "use lantern")
	assert.Equal(t, "Nothing happens.", res.Message)
}

func TestExecuteInit(t *testing.T) {
	interp, sess := testFixture(t)
	res := interp.Execute(sess, "start")
	assert.Equal(t, ActionInit, res.Action)
	assert.Contains(t, res.Message, "You wake up at the entrance.")
	assert.Contains(t, res.Message, "A narrow entrance.")
	assert.Contains(t, res.Message, "There is a hall to the north.")
	assert.Equal(t, "rooms/entrance.png", res.AssetRef)
}

func TestExecuteRestart(t *testing.T) {
	interp, sess := testFixture(t)
	interp.Execute(sess, "go north")
	interp.Execute(sess, "take key")
	require.NotZero(t, sess.CurrentScore())

	res := interp.Execute(sess, "restart")
	assert.Equal(t, ActionRestart, res.Action)
	assert.Contains(t, res.Message, "You wake up at the entrance.")
	assert.Equal(t, "start", currentRef(t, sess))
	assert.Zero(t, sess.CurrentScore())
}

func TestExecuteLook(t *testing.T) {
	interp, sess := testFixture(t)
	res := interp.Execute(sess, "look")
	assert.Contains(t, res.Message, "A narrow entrance.")
	assert.Contains(t, res.Message, "There is a hall to the north.")
}

func TestExecuteInventory(t *testing.T) {
	interp, sess := testFixture(t)
	res := interp.Execute(sess, "inv")
	assert.Equal(t, "You are not carrying anything.", res.Message)

	interp.Execute(sess, "go north")
	interp.Execute(sess, "take key")
	res = interp.Execute(sess, "inventory")
	assert.Equal(t, "You are carrying Rusty Key (a key).", res.Message)
}

func TestExecuteHelpAndClear(t *testing.T) {
	interp, sess := testFixture(t)

	res := interp.Execute(sess, "help")
	assert.Contains(t, res.Message, "You can do the following:")

	res = interp.Execute(sess, "clear")
	assert.Equal(t, ActionClear, res.Action)
	assert.True(t, res.Clear)
	assert.Empty(t, res.Message)
}

func TestExecuteQuantity(t *testing.T) {
	interp, sess := testFixture(t)
	interp.Execute(sess, "go north")

	res := interp.Execute(sess, "take key 2")
	assert.Equal(t, 2, res.Quantity)
	assert.Equal(t, "You take the rusty key.", res.Message, "quantity is captured but has no effect")

	res = interp.Execute(sess, "look")
	assert.Equal(t, 1, res.Quantity, "quantity defaults to 1")
}

func TestExecuteQuantityBeforeTarget(t *testing.T) {
	interp, sess := testFixture(t)
	interp.Execute(sess, "go north")

	// The amount may come before the target, as in "take 2 key".
	res := interp.Execute(sess, "take 2 key")
	assert.Equal(t, 2, res.Quantity)
	assert.Equal(t, "You take the rusty key.", res.Message)
	_, held := sess.Player.FindItem("key")
	assert.True(t, held)
}

func TestExecuteSerializesCommands(t *testing.T) {
	interp, sess := testFixture(t)

	// Restart rebinds the session's world while look reads it; run the
	// two against each other to confirm commands never interleave.
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 25; n++ {
				interp.Execute(sess, "restart")
				res := interp.Execute(sess, "look")
				assert.NotEmpty(t, res.Message)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "start", currentRef(t, sess))
}

func TestJoinDirections(t *testing.T) {
	assert.Equal(t, "north", joinDirections([]world.Direction{world.DirectionNorth}))
	assert.Equal(t, "north or east", joinDirections([]world.Direction{world.DirectionNorth, world.DirectionEast}))
	assert.Equal(t, "up, north or east",
		joinDirections([]world.Direction{world.DirectionUp, world.DirectionNorth, world.DirectionEast}))
}
