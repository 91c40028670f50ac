package scripting

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// registerHelpers installs the dungeon global table into L with the small
// helper functions scripts may call.
//
// Precondition: L must be from NewSandboxedState.
func registerHelpers(L *lua.LState) {
	helpers := L.NewTable()

	// dungeon.article("apple") -> "an"
	L.SetField(helpers, "article", L.NewFunction(func(L *lua.LState) int {
		word := L.CheckString(1)
		article := "a"
		if len(word) > 0 && strings.ContainsRune("aeiouAEIOU", rune(word[0])) {
			article = "an"
		}
		L.Push(lua.LString(article))
		return 1
	}))

	// dungeon.lower("Lantern") -> "lantern"
	L.SetField(helpers, "lower", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(strings.ToLower(L.CheckString(1))))
		return 1
	}))

	L.SetGlobal("dungeon", helpers)
}
