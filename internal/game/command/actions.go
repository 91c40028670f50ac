// Package command turns free-text player utterances into game-state
// transitions: it classifies tokens against the action vocabulary,
// resolves targets against the current room and inventory, and dispatches
// per-action effects.
package command

import "strings"

// Action is the closed set of verbs the interpreter understands.
type Action int

// Actions in resolution order. When a command mentions aliases of more
// than one action, the earliest action in this order wins.
const (
	ActionNone Action = iota
	ActionInit
	ActionRestart
	ActionMove
	ActionLook
	ActionInventory
	ActionHelp
	ActionClear
	ActionExamine
	ActionEat
	ActionDrink
	ActionSmell
	ActionBreak
	ActionThrow
	ActionRead
	ActionDrop
	ActionUse
	ActionTalk
	ActionTake
	ActionGive
	ActionOpen
	ActionClose
	ActionAttack
)

// Category groups actions for help output.
type Category struct {
	Name string
	// ShowHelp controls whether the category's actions appear in the
	// help listing.
	ShowHelp bool
}

// Action categories. System and none stay out of the help listing.
var (
	CategoryNone        = Category{Name: "none"}
	CategorySystem      = Category{Name: "system"}
	CategoryGeneral     = Category{Name: "general", ShowHelp: true}
	CategoryMove        = Category{Name: "move", ShowHelp: true}
	CategoryInventory   = Category{Name: "inventory", ShowHelp: true}
	CategoryInteraction = Category{Name: "interaction", ShowHelp: true}
	CategoryCombat      = Category{Name: "combat", ShowHelp: true}
)

// actionDef carries an action's vocabulary: its ordered alias list
// (first entry is canonical), category, and help text. Alias lists are
// not guaranteed disjoint; resolution order disambiguates.
type actionDef struct {
	action   Action
	aliases  []string
	category Category
	help     string
}

var actionDefs = []actionDef{
	{ActionNone, []string{"none", "unknown"}, CategoryNone, ""},
	{ActionInit, []string{"init", "initialize", "start"}, CategorySystem, ""},
	{ActionRestart, []string{"restart", "reset", "begin again"}, CategorySystem, ""},
	{ActionMove, []string{"move", "go", "travel"}, CategoryMove, "move in a direction, e.g. 'go north'"},
	{ActionLook, []string{"look"}, CategoryGeneral, "look around the room"},
	{ActionInventory, []string{"inventory", "inv"}, CategoryInventory, "list what you are carrying"},
	{ActionHelp, []string{"help"}, CategoryGeneral, "show this listing"},
	{ActionClear, []string{"clear"}, CategoryGeneral, "clear the display"},
	{ActionExamine, []string{"examine"}, CategoryGeneral, "examine something closely"},
	{ActionEat, []string{"eat"}, CategoryInteraction, "eat something"},
	{ActionDrink, []string{"drink"}, CategoryInteraction, "drink something"},
	{ActionSmell, []string{"smell"}, CategoryInteraction, "smell something"},
	{ActionBreak, []string{"break"}, CategoryInteraction, "break something"},
	{ActionThrow, []string{"throw"}, CategoryInteraction, "throw something"},
	{ActionRead, []string{"read"}, CategoryInteraction, "read something"},
	{ActionDrop, []string{"drop"}, CategoryInventory, "drop something you are carrying"},
	{ActionUse, []string{"use"}, CategoryInteraction, "use something"},
	{ActionTalk, []string{"talk", "ask", "tell"}, CategoryInteraction, "talk to someone"},
	{ActionTake, []string{"take"}, CategoryInventory, "pick something up"},
	{ActionGive, []string{"give"}, CategoryInteraction, "give something away"},
	{ActionOpen, []string{"open"}, CategoryInteraction, "open something"},
	{ActionClose, []string{"close"}, CategoryInteraction, "close something"},
	{ActionAttack, []string{"attack", "kick", "punch", "kill", "fight"}, CategoryCombat, "attack something"},
}

// aliasTokens is the flattened set of every single-word alias, built once
// at startup for token stripping and membership tests.
var aliasTokens = func() map[string]bool {
	set := make(map[string]bool)
	for _, def := range actionDefs {
		for _, a := range def.aliases {
			if !strings.Contains(a, " ") {
				set[a] = true
			}
		}
	}
	return set
}()

// Canonical returns the action's canonical alias.
func (a Action) Canonical() string {
	return actionDefs[a].aliases[0]
}

// String implements fmt.Stringer.
func (a Action) String() string {
	return a.Canonical()
}

// CategoryOf returns the action's help category.
func CategoryOf(a Action) Category {
	return actionDefs[a].category
}

// ActionForCommand scans actions in resolution order and returns the
// first whose alias the whole command text starts with, after
// lowercasing. The prefix match is on the entire string, not per token,
// so "looking for trouble" matches look. Returns ActionNone when nothing
// matches.
func ActionForCommand(text string) Action {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, def := range actionDefs {
		for _, alias := range def.aliases {
			if strings.HasPrefix(text, alias) {
				return def.action
			}
		}
	}
	return ActionNone
}

// PrimaryAction picks the command's action from its token set: an action
// is present when one of its aliases is an exact member of the tokens,
// and the earliest present action in resolution order wins. Multi-word
// aliases never match here.
//
// Postcondition: Returns (ActionNone, false) when no alias is present.
func PrimaryAction(tokens []string) (Action, bool) {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	for _, def := range actionDefs {
		for _, alias := range def.aliases {
			if set[alias] {
				return def.action, true
			}
		}
	}
	return ActionNone, false
}

// StripActionTokens removes every token that is an alias of any action,
// leaving the candidate target words in their original order.
func StripActionTokens(tokens []string) []string {
	var rest []string
	for _, t := range tokens {
		if aliasTokens[t] {
			continue
		}
		rest = append(rest, t)
	}
	return rest
}

// Tokenize sanitizes a raw command: lowercase, strip every character
// that is not a letter, digit, or space, and split on whitespace.
func Tokenize(raw string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '\t', r == '\n':
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}
