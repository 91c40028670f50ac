package command

// denylist is the fixed set of words that short-circuit command handling
// with a rebuke instead of reaching any handler.
var denylist = map[string]bool{
	"damn":    true,
	"hell":    true,
	"crap":    true,
	"shit":    true,
	"fuck":    true,
	"bastard": true,
	"bitch":   true,
	"ass":     true,
	"asshole": true,
}

// rebukes are the responses for denylisted input.
var rebukes = []string{
	"Watch your language.",
	"There's no need for that kind of talk.",
	"Such language will get you nowhere.",
}

// containsDenylisted reports whether any token is on the denylist.
func containsDenylisted(tokens []string) bool {
	for _, t := range tokens {
		if denylist[t] {
			return true
		}
	}
	return false
}
