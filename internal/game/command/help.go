package command

import (
	"fmt"
	"strings"
)

// HelpListing renders the help text: every action with help text, grouped
// by category, restricted to categories flagged help-visible. Actions
// appear in resolution order within their category.
func HelpListing() string {
	var order []string
	grouped := make(map[string][]actionDef)
	for _, def := range actionDefs {
		if !def.category.ShowHelp || def.help == "" {
			continue
		}
		if _, seen := grouped[def.category.Name]; !seen {
			order = append(order, def.category.Name)
		}
		grouped[def.category.Name] = append(grouped[def.category.Name], def)
	}

	var b strings.Builder
	b.WriteString("You can do the following:\n")
	for _, cat := range order {
		fmt.Fprintf(&b, "\n%s:\n", strings.ToUpper(cat))
		for _, def := range grouped[cat] {
			fmt.Fprintf(&b, "  %s", def.aliases[0])
			if len(def.aliases) > 1 {
				fmt.Fprintf(&b, " (%s)", strings.Join(def.aliases[1:], ", "))
			}
			fmt.Fprintf(&b, ": %s\n", def.help)
		}
	}
	return b.String()
}
