package scan

import "strings"

// Job boards plant trap fields to catch bots: inputs a human never sees
// but a naive autofiller happily completes. Filling one can silently kill
// an application, so trapped candidates are dropped before they ever reach
// resolution. Two signal sources feed this: backend-observed placement
// (offscreen, aria-hidden) carried on the candidate, and attribute naming
// checked here.
var trapNameTokens = []string{
	"honeypot",
	"honey_pot",
	"hpot",
	"h-captcha-nospam",
	"nospam",
	"no_spam",
	"botfield",
	"bot_field",
	"bot-field",
	"botcheck",
	"bot_check",
	"leave_blank",
	"leave-blank",
	"do_not_fill",
	"do-not-fill",
	"fax_number_confirm", // the classic "confirm your fax" decoy
}

// trapSignals returns the reasons a candidate looks like a bot trap, empty
// when it looks legitimate.
func trapSignals(c candidate) []string {
	var reasons []string
	if c.Trap {
		reasons = append(reasons, "hidden placement (offscreen or aria-hidden)")
	}
	haystack := strings.ToLower(c.Name + " " + c.ID)
	for _, token := range trapNameTokens {
		if strings.Contains(haystack, token) {
			reasons = append(reasons, "trap-named attribute ("+token+")")
			break
		}
	}
	return reasons
}
