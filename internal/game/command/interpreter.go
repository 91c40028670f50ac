package command

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/item"
	"github.com/cory-johannsen/dungeon/internal/game/session"
	"github.com/cory-johannsen/dungeon/internal/game/world"
)

// defaultResponses are the "not understood" messages, chosen uniformly.
var defaultResponses = []string{
	"I'm not sure what you are trying to do here...",
	"Nope.",
	"Ain't gonna happen.",
	"No can do.",
}

// Result is the structured outcome of one command.
type Result struct {
	// Action is the resolved primary action.
	Action Action
	// Message is the narration for the player. Empty only for clear.
	Message string
	// AssetRef points at the art asset for the room being narrated.
	AssetRef string
	// Quantity is a trailing numeric token from the command, defaulting
	// to 1. Parsed but not yet wired to any effect.
	Quantity int
	// Clear signals the caller to clear its display instead of printing.
	Clear bool
}

// WorldFactory builds a fresh world instance, used by restart.
type WorldFactory func() (*world.World, error)

// ScriptRunner evaluates an item's use script and returns its narration.
// Implementations must be safe for concurrent use.
type ScriptRunner interface {
	Run(script string, it *item.Item, sess *session.Session) (string, error)
}

// Interpreter executes player commands against session state. One command
// runs to completion without suspension; callers must serialize commands
// within a session.
type Interpreter struct {
	logger   *zap.Logger
	newWorld WorldFactory
	scripts  ScriptRunner

	mu  sync.Mutex
	rng *rand.Rand
}

// NewInterpreter creates an interpreter. scripts may be nil, disabling
// item use scripts.
//
// Precondition: logger and newWorld must be non-nil.
func NewInterpreter(logger *zap.Logger, newWorld WorldFactory, scripts ScriptRunner) *Interpreter {
	return &Interpreter{
		logger:   logger,
		newWorld: newWorld,
		scripts:  scripts,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (i *Interpreter) pick(responses []string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return responses[i.rng.Intn(len(responses))]
}

// Execute runs one command against the session and returns its result.
// Player-triggerable failures never escape as errors; they fold into the
// result message so every command produces a valid response.
//
// Precondition: sess must hold a loaded world.
// Postcondition: Commands on a session are serialized; a command commits
// in full before the next one observes the session.
func (i *Interpreter) Execute(sess *session.Session, raw string) Result {
	sess.Lock()
	defer sess.Unlock()

	tokens := Tokenize(raw)

	action, ok := PrimaryAction(tokens)
	if !ok {
		return Result{Action: ActionNone, Message: i.pick(defaultResponses), Quantity: 1}
	}

	// The denylist outranks every handler once an action matched.
	if containsDenylisted(tokens) {
		return Result{Action: action, Message: i.pick(rebukes), Quantity: 1}
	}

	// A numeric token anywhere in the remainder is an amount, not part
	// of the target, so "take 2 key" and "take key 2" both name the key.
	rest := StripActionTokens(tokens)
	quantity := 1
	words := rest[:0:0]
	for _, tok := range rest {
		if v, err := strconv.Atoi(tok); err == nil {
			quantity = v
			continue
		}
		words = append(words, tok)
	}
	rest = words

	room, err := sess.CurrentRoom()
	if err != nil {
		i.logger.Error("session current room lookup failed",
			zap.String("session", sess.ID.String()), zap.Error(err))
		return Result{Action: action, Message: "Something is wrong with the world.", Quantity: quantity}
	}

	res := i.dispatch(sess, room, action, rest)
	res.Quantity = quantity
	return res
}

func (i *Interpreter) dispatch(sess *session.Session, room *world.Room, action Action, rest []string) Result {
	switch action {
	case ActionInit:
		return i.handleInit(sess, room)
	case ActionRestart:
		return i.handleRestart(sess)
	case ActionLook:
		return Result{
			Action:   ActionLook,
			Message:  room.Describe() + "\n" + sess.World.Graph.ExitsNarration(room.ID),
			AssetRef: room.AssetRef,
		}
	case ActionInventory:
		if sess.Player == nil {
			return Result{Action: ActionInventory, Message: "You need to start a game first."}
		}
		return Result{Action: ActionInventory, Message: sess.Player.InventoryNarration()}
	case ActionHelp:
		return Result{Action: ActionHelp, Message: HelpListing()}
	case ActionClear:
		return Result{Action: ActionClear, Clear: true}
	case ActionMove:
		return i.handleMove(sess, room, rest)
	default:
		return i.handleTarget(sess, room, action, rest)
	}
}

func (i *Interpreter) handleInit(sess *session.Session, room *world.Room) Result {
	opening := sess.World.Scenario.Opening
	if opening == "" {
		opening = fmt.Sprintf("Welcome to %s!", sess.World.Scenario.Name)
	}
	return Result{
		Action:   ActionInit,
		Message:  opening + "\n\n" + room.Describe() + "\n" + sess.World.Graph.ExitsNarration(room.ID),
		AssetRef: room.AssetRef,
	}
}

func (i *Interpreter) handleRestart(sess *session.Session) Result {
	w, err := i.newWorld()
	if err != nil {
		i.logger.Error("restart world build failed", zap.Error(err))
		return Result{Action: ActionRestart, Message: "The world refuses to begin again."}
	}
	if err := sess.Restart(w); err != nil {
		i.logger.Error("session restart failed", zap.Error(err))
		return Result{Action: ActionRestart, Message: "The world refuses to begin again."}
	}
	room, err := sess.CurrentRoom()
	if err != nil {
		return Result{Action: ActionRestart, Message: "The world refuses to begin again."}
	}
	res := i.handleInit(sess, room)
	res.Action = ActionRestart
	return res
}

func (i *Interpreter) handleMove(sess *session.Session, room *world.Room, rest []string) Result {
	graph := sess.World.Graph
	dir, ok := world.FirstDirection(rest)
	if !ok {
		dirs := graph.ExitDirections(room.ID)
		if len(dirs) == 0 {
			return Result{Action: ActionMove, Message: "You are stuck! There are no exits from this room."}
		}
		msg := fmt.Sprintf("What direction do you want to move in? You can go %s.", joinDirections(dirs))
		if len(rest) > 0 {
			msg = fmt.Sprintf("You can't go '%s'. %s", strings.Join(rest, " "), msg)
		}
		return Result{Action: ActionMove, Message: msg}
	}

	target, err := graph.ConnectedRoom(room.ID, dir)
	if err != nil {
		i.logger.Error("exit lookup failed", zap.String("room", room.RefID), zap.Error(err))
		return Result{Action: ActionMove, Message: "Something is wrong with the world."}
	}
	if target == nil {
		return Result{Action: ActionMove, Message: "You can't go that direction."}
	}
	if target.Locked {
		return Result{Action: ActionMove, Message: fmt.Sprintf("The way %s is locked.", dir)}
	}

	firstVisit := !graph.IsVisited(target.ID)
	if err := sess.MoveTo(target.ID); err != nil {
		i.logger.Error("move failed", zap.String("room", room.RefID), zap.Error(err))
		return Result{Action: ActionMove, Message: "Something is wrong with the world."}
	}
	if firstVisit {
		sess.AddScore(discoveryPoints)
	}
	return Result{
		Action:   ActionMove,
		Message:  fmt.Sprintf("You move %s.\n\n%s\n%s", dir, target.Describe(), graph.ExitsNarration(target.ID)),
		AssetRef: target.AssetRef,
	}
}

// Score awards.
const discoveryPoints = 5

// targetSource says which collection a resolved target came from.
type targetSource int

const (
	fromRoom targetSource = iota
	fromInventory
)

func (i *Interpreter) handleTarget(sess *session.Session, room *world.Room, action Action, rest []string) Result {
	if len(rest) == 0 {
		return Result{Action: action, Message: fmt.Sprintf("What do you want to %s?", action.Canonical())}
	}
	word := strings.Join(rest, " ")

	// The room wins resolution ties over the inventory; NPCs come last.
	if it, ok := room.FindItem(word); ok {
		return i.itemEffect(sess, room, action, it, fromRoom)
	}
	if sess.Player != nil {
		if it, ok := sess.Player.FindItem(word); ok {
			return i.itemEffect(sess, room, action, it, fromInventory)
		}
	}
	if npc, ok := room.FindNPC(word); ok {
		return i.npcEffect(action, npc)
	}
	return Result{Action: action, Message: fmt.Sprintf("I don't see anything called '%s'.", word)}
}

func (i *Interpreter) itemEffect(sess *session.Session, room *world.Room, action Action, it *item.Item, src targetSource) Result {
	name := strings.ToLower(it.Name)
	switch action {
	case ActionExamine:
		detail := it.Detail
		if detail == "" {
			detail = fmt.Sprintf("It's %s %s.", item.Article(it.Name), name)
		}
		return Result{Action: action, Message: fmt.Sprintf("You examine the %s. %s", name, detail)}

	case ActionTake:
		if src == fromInventory {
			return Result{Action: action, Message: fmt.Sprintf("You already have the %s.", name)}
		}
		if sess.Player == nil {
			i.logger.Warn("take without bound player",
				zap.String("session", sess.ID.String()), zap.Error(session.ErrNoPlayerBound))
			return Result{Action: action, Message: "You have nobody to carry that."}
		}
		if err := room.RemoveItem(it.ID); err != nil {
			i.logger.Error("take failed", zap.String("item", it.Name), zap.Error(err))
			return Result{Action: action, Message: fmt.Sprintf("I don't see anything called '%s'.", name)}
		}
		sess.Player.Take(it)
		sess.AddScore(int(it.Value))
		return Result{Action: action, Message: fmt.Sprintf("You take the %s.", name)}

	case ActionDrop:
		if src == fromRoom {
			return Result{Action: action, Message: fmt.Sprintf("You don't have the %s.", name)}
		}
		if err := sess.Player.Remove(it.ID); err != nil {
			i.logger.Error("drop failed", zap.String("item", it.Name), zap.Error(err))
			return Result{Action: action, Message: fmt.Sprintf("You don't have the %s.", name)}
		}
		room.Place(it, "")
		return Result{Action: action, Message: fmt.Sprintf("You drop the %s.", name)}

	case ActionDrink:
		if it.Kind == item.KindPotion {
			return Result{Action: action, Message: fmt.Sprintf("You drink the %s. %s", name, it.Effects)}
		}
		return Result{Action: action, Message: "You can't drink this."}

	case ActionSmell:
		if it.Kind == item.KindPotion {
			return Result{Action: action, Message: fmt.Sprintf("You smell the %s. %s", name, it.Smell)}
		}
		return Result{Action: action, Message: "You can't smell this."}

	case ActionRead:
		if it.Kind == item.KindScroll {
			return Result{Action: action, Message: fmt.Sprintf("You read the scroll:\n\n%s", it.Text)}
		}
		return Result{Action: action, Message: "You can't read this."}

	case ActionUse:
		return i.useItem(sess, room, it)

	case ActionGive, ActionTalk, ActionAttack:
		return Result{Action: action, Message: "You can't do that yet."}

	default:
		// EAT, BREAK, THROW, OPEN, CLOSE and anything future fall through
		// to the canned refusal.
		return Result{Action: action, Message: fmt.Sprintf("You can't %s this.", action.Canonical())}
	}
}

func (i *Interpreter) useItem(sess *session.Session, room *world.Room, it *item.Item) Result {
	if it.Kind == item.KindKey {
		return i.useKey(sess, room, it)
	}
	if it.Script != "" && i.scripts != nil {
		msg, err := i.scripts.Run(it.Script, it, sess)
		if err != nil {
			i.logger.Error("item script failed",
				zap.String("item", it.Name), zap.String("script", it.Script), zap.Error(err))
			return Result{Action: ActionUse, Message: "Nothing happens."}
		}
		return Result{Action: ActionUse, Message: msg}
	}
	return Result{Action: ActionUse, Message: "You can't use this."}
}

// useKey tries the key on every locked room adjacent to the player.
func (i *Interpreter) useKey(sess *session.Session, room *world.Room, key *item.Item) Result {
	var sawLocked bool
	for dir, target := range sess.World.Graph.ConnectedRooms(room.ID) {
		if !target.Locked {
			continue
		}
		sawLocked = true
		if err := target.Unlock(key); err != nil {
			continue
		}
		return Result{
			Action:  ActionUse,
			Message: fmt.Sprintf("You unlock the %s to the %s.", strings.ToLower(target.Name), dir),
		}
	}
	if sawLocked {
		return Result{Action: ActionUse, Message: "That key doesn't fit any lock here."}
	}
	return Result{Action: ActionUse, Message: "There is nothing to unlock here."}
}

func (i *Interpreter) npcEffect(action Action, npc *world.NPC) Result {
	switch action {
	case ActionExamine:
		desc := npc.Description
		if desc == "" {
			desc = fmt.Sprintf("%s looks unremarkable.", npc.Name)
		}
		return Result{Action: action, Message: fmt.Sprintf("You examine %s. %s", npc.Name, desc)}
	case ActionTalk, ActionGive, ActionAttack:
		return Result{Action: action, Message: "You can't do that yet."}
	default:
		return Result{Action: action, Message: fmt.Sprintf("You can't %s %s.", action.Canonical(), npc.Name)}
	}
}

func joinDirections(dirs []world.Direction) string {
	words := make([]string, len(dirs))
	for i, d := range dirs {
		words[i] = string(d)
	}
	if len(words) == 1 {
		return words[0]
	}
	return strings.Join(words[:len(words)-1], ", ") + " or " + words[len(words)-1]
}
