package htmlform

import (
	"net/url"
	"strings"
)

// Pair is one (name, value) entry of a submission payload.
type Pair struct {
	Name  string
	Value string
}

// Payload is an ordered sequence of pairs. It is deliberately not a
// map: Mailman repeats field names (one hidden "user" per member row)
// and collapsing duplicates would corrupt the submission.
type Payload []Pair

// Build produces the payload a browser would send for the form's
// current state, minus any submit control. Submit controls are appended
// separately once one has been chosen, mirroring a click on that
// specific button.
func Build(form *Form) Payload {
	var payload Payload

	for _, f := range form.Fields {
		if f.Name == "" {
			continue
		}

		switch f.Kind {
		case KindSubmit, KindIgnored:
			// chosen explicitly later, or never sent
		case KindCheckbox, KindRadio:
			if f.Checked {
				payload = append(payload, Pair{f.Name, f.Value})
			}
		case KindSelect:
			payload = append(payload, selectPairs(f)...)
		default:
			payload = append(payload, Pair{f.Name, f.Value})
		}
	}

	return payload
}

func selectPairs(f Field) []Pair {
	if f.Multiple {
		var pairs []Pair
		for _, opt := range f.Options {
			if opt.Selected {
				pairs = append(pairs, Pair{f.Name, opt.Value})
			}
		}
		return pairs
	}

	for _, opt := range f.Options {
		if opt.Selected {
			return []Pair{{f.Name, opt.Value}}
		}
	}
	// No explicit selection: browsers submit the first option.
	if len(f.Options) > 0 {
		return []Pair{{f.Name, f.Options[0].Value}}
	}
	return nil
}

// WithoutNames returns a copy with every pair whose name is in names
// removed, duplicates included, preserving the relative order of the
// rest. Omitting a checkbox's pairs entirely is how a browser submits
// an unchecked box.
func (p Payload) WithoutNames(names ...string) Payload {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	out := make(Payload, 0, len(p))
	for _, pair := range p {
		if !drop[pair.Name] {
			out = append(out, pair)
		}
	}
	return out
}

// Append returns a copy with one more pair at the end.
func (p Payload) Append(name, value string) Payload {
	out := make(Payload, 0, len(p)+1)
	out = append(out, p...)
	return append(out, Pair{name, value})
}

// Names returns every pair name in order, duplicates included.
func (p Payload) Names() []string {
	names := make([]string, len(p))
	for i, pair := range p {
		names[i] = pair.Name
	}
	return names
}

// Encode serializes the payload as application/x-www-form-urlencoded,
// preserving pair order. url.Values cannot be used here: it reorders
// keys on encode.
func (p Payload) Encode() string {
	var b strings.Builder
	for i, pair := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(pair.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pair.Value))
	}
	return b.String()
}
