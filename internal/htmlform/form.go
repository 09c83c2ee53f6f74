// Package htmlform parses HTML forms and rebuilds their submission
// payloads with browser-equivalent semantics: same fields, same values,
// same document order, duplicate names intact.
package htmlform

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Kind identifies the submission behavior of a form field.
type Kind int

const (
	// KindText covers every input type that always submits its value:
	// text, hidden, password, email, number, and anything unrecognized.
	KindText Kind = iota
	KindCheckbox
	KindRadio
	KindTextarea
	KindSelect
	KindSubmit
	// KindIgnored covers file, image and button inputs, which this tool
	// never submits.
	KindIgnored
)

// Option is one <option> of a select field.
type Option struct {
	Value    string
	Selected bool
}

// Field is one field-producing element of a form, in document order.
type Field struct {
	Kind     Kind
	Name     string
	Value    string
	Checked  bool // checkbox/radio only
	Multiple bool // select only
	Options  []Option
}

// Form is the parsed first <form> of a document. It is never mutated
// after Parse; pages are re-fetched and re-parsed between steps because
// the server rewrites the form on every state change.
type Form struct {
	Action string
	Method string
	Fields []Field

	sel *goquery.Selection
}

// Selection exposes the underlying parsed form element for structural
// queries (row ancestors, sibling text) that the flat field list cannot
// answer.
func (f *Form) Selection() *goquery.Selection {
	return f.sel
}

// Parse extracts the first <form> from an HTML document. A page without
// any form returns (nil, nil); the target pages are known to contain at
// most one relevant form, so the first one is authoritative.
func Parse(html string) (*Form, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	sel := doc.Find("form").First()
	if sel.Length() == 0 {
		return nil, nil
	}

	form := &Form{
		Action: sel.AttrOr("action", ""),
		Method: strings.ToLower(sel.AttrOr("method", "get")),
		sel:    sel,
	}

	sel.Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
		form.Fields = append(form.Fields, parseField(s))
	})

	return form, nil
}

func parseField(s *goquery.Selection) Field {
	name := s.AttrOr("name", "")

	switch goquery.NodeName(s) {
	case "textarea":
		return Field{Kind: KindTextarea, Name: name, Value: s.Text()}

	case "select":
		_, multiple := s.Attr("multiple")
		f := Field{Kind: KindSelect, Name: name, Multiple: multiple}
		s.Find("option").Each(func(_ int, opt *goquery.Selection) {
			value, ok := opt.Attr("value")
			if !ok {
				value = strings.TrimSpace(opt.Text())
			}
			_, selected := opt.Attr("selected")
			f.Options = append(f.Options, Option{Value: value, Selected: selected})
		})
		return f
	}

	typ := strings.ToLower(s.AttrOr("type", "text"))
	_, checked := s.Attr("checked")
	value := s.AttrOr("value", "")

	switch typ {
	case "submit":
		return Field{Kind: KindSubmit, Name: name, Value: value}
	case "image", "button", "file", "reset":
		return Field{Kind: KindIgnored, Name: name, Value: value}
	case "checkbox":
		return Field{Kind: KindCheckbox, Name: name, Value: checkValue(value), Checked: checked}
	case "radio":
		return Field{Kind: KindRadio, Name: name, Value: checkValue(value), Checked: checked}
	default:
		return Field{Kind: KindText, Name: name, Value: value}
	}
}

// checkValue applies the browser default for check controls: a box with
// no usable value attribute submits the literal "on".
func checkValue(v string) string {
	if v == "" {
		return "on"
	}
	return v
}
