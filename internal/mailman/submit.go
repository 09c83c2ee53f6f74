package mailman

import (
	"errors"
	"strings"

	"github.com/mailman-tools/mmunblock/internal/htmlform"
)

// ErrNoSubmitControl means a form carries no named submit field, so
// there is no button whose click could be reproduced.
var ErrNoSubmitControl = errors.New("form has no usable submit control")

// Submit-button keyword heuristics. The admin pages are not under our
// control and their button names have shifted between Mailman releases,
// so buttons are scored rather than matched exactly. The weights and
// the first-occurrence tie-break are load-bearing: changing them can
// silently pick the "Search" button and turn a state change into a
// no-op.
var (
	// Tokens of a genuine state-changing action (+5 each)
	memberActionTokens = []string{
		"submit", "change", "apply", "update", "setmember",
	}

	// Tokens of a non-mutating action (-10 each)
	memberPassiveTokens = []string{
		"search", "findmember",
	}

	// Tokens meaning "clear the bounce record"; first match wins
	bounceClearTokens = []string{
		"clear", "reset", "remove", "process",
	}
)

// SelectMembersSubmit picks the submit control that applies member
// option changes. Every named submit field is scored on its name and
// value text; the highest score wins and ties resolve to the earliest
// field in document order.
func SelectMembersSubmit(form *htmlform.Form) (name, value string, err error) {
	best := -1 << 30
	found := false

	for _, f := range form.Fields {
		if f.Kind != htmlform.KindSubmit || f.Name == "" {
			continue
		}

		score := scoreMembersSubmit(f.Name + " " + f.Value)
		if !found || score > best {
			best = score
			name, value = f.Name, f.Value
			found = true
		}
	}

	if !found {
		return "", "", ErrNoSubmitControl
	}
	return name, value, nil
}

func scoreMembersSubmit(text string) int {
	text = strings.ToLower(text)

	score := 0
	for _, tok := range memberActionTokens {
		if strings.Contains(text, tok) {
			score += 5
		}
	}
	// Mailman names its member-options button setmemberopts_btn; this
	// is the strongest possible signal.
	if strings.Contains(text, "setmember") {
		score += 3
	}
	for _, tok := range memberPassiveTokens {
		if strings.Contains(text, tok) {
			score -= 10
		}
	}
	return score
}

// SelectBounceSubmit picks the submit control on the bounce processing
// page: the first button in document order whose text suggests clearing
// the record, else the first submit field at all.
func SelectBounceSubmit(form *htmlform.Form) (name, value string, err error) {
	var first *htmlform.Field

	for i, f := range form.Fields {
		if f.Kind != htmlform.KindSubmit || f.Name == "" {
			continue
		}
		if first == nil {
			first = &form.Fields[i]
		}

		text := strings.ToLower(f.Name + " " + f.Value)
		for _, tok := range bounceClearTokens {
			if strings.Contains(text, tok) {
				return f.Name, f.Value, nil
			}
		}
	}

	if first == nil {
		return "", "", ErrNoSubmitControl
	}
	return first.Name, first.Value, nil
}
