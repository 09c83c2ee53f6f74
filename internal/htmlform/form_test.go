package htmlform

import (
	"testing"
)

func TestParseNoForm(t *testing.T) {
	form, err := Parse(`<html><body><p>Authentication failed.</p></body></html>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if form != nil {
		t.Errorf("got form %+v, want nil", form)
	}
}

func TestParseFirstFormWins(t *testing.T) {
	html := `<html><body>
		<form action="/first" method="post"><input type="text" name="a" value="1"></form>
		<form action="/second" method="get"><input type="text" name="b" value="2"></form>
	</body></html>`

	form, err := Parse(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if form == nil {
		t.Fatal("got nil form")
	}
	if form.Action != "/first" {
		t.Errorf("action: got %q, want %q", form.Action, "/first")
	}
	if form.Method != "post" {
		t.Errorf("method: got %q, want %q", form.Method, "post")
	}
	if len(form.Fields) != 1 || form.Fields[0].Name != "a" {
		t.Errorf("fields: got %+v, want single field a", form.Fields)
	}
}

func TestParseFieldKinds(t *testing.T) {
	html := `<form action="x" method="post">
		<input type="text" name="text" value="tv">
		<input type="hidden" name="hidden" value="hv">
		<input type="password" name="adminpw">
		<input type="checkbox" name="cb_checked" checked>
		<input type="checkbox" name="cb_valued" value="yes" checked>
		<input type="checkbox" name="cb_unchecked" value="no">
		<input type="radio" name="r" value="one">
		<input type="radio" name="r" value="two" checked>
		<textarea name="ta">body text</textarea>
		<input type="submit" name="go" value="Go">
		<input type="image" name="img" value="i">
		<input type="file" name="f">
		<input name="untyped" value="uv">
	</form>`

	form, err := Parse(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Field{
		{Kind: KindText, Name: "text", Value: "tv"},
		{Kind: KindText, Name: "hidden", Value: "hv"},
		{Kind: KindText, Name: "adminpw", Value: ""},
		{Kind: KindCheckbox, Name: "cb_checked", Value: "on", Checked: true},
		{Kind: KindCheckbox, Name: "cb_valued", Value: "yes", Checked: true},
		{Kind: KindCheckbox, Name: "cb_unchecked", Value: "no", Checked: false},
		{Kind: KindRadio, Name: "r", Value: "one", Checked: false},
		{Kind: KindRadio, Name: "r", Value: "two", Checked: true},
		{Kind: KindTextarea, Name: "ta", Value: "body text"},
		{Kind: KindSubmit, Name: "go", Value: "Go"},
		{Kind: KindIgnored, Name: "img", Value: "i"},
		{Kind: KindIgnored, Name: "f", Value: ""},
		{Kind: KindText, Name: "untyped", Value: "uv"},
	}

	if len(form.Fields) != len(want) {
		t.Fatalf("got %d fields, want %d: %+v", len(form.Fields), len(want), form.Fields)
	}
	for i, w := range want {
		got := form.Fields[i]
		if got.Kind != w.Kind || got.Name != w.Name || got.Value != w.Value || got.Checked != w.Checked {
			t.Errorf("field %d: got %+v, want %+v", i, got, w)
		}
	}
}

func TestParseSelect(t *testing.T) {
	html := `<form action="x">
		<select name="single">
			<option value="a">A</option>
			<option value="b" selected>B</option>
		</select>
		<select name="novalue">
			<option>First</option>
			<option>Second</option>
		</select>
		<select name="multi" multiple>
			<option value="1" selected>one</option>
			<option value="2">two</option>
			<option value="3" selected>three</option>
		</select>
	</form>`

	form, err := Parse(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(form.Fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(form.Fields))
	}

	single := form.Fields[0]
	if single.Kind != KindSelect || single.Multiple {
		t.Errorf("single: got %+v, want single select", single)
	}
	if len(single.Options) != 2 || !single.Options[1].Selected {
		t.Errorf("single options: got %+v", single.Options)
	}

	novalue := form.Fields[1]
	if novalue.Options[0].Value != "First" || novalue.Options[1].Value != "Second" {
		t.Errorf("option text should stand in for a missing value attr: %+v", novalue.Options)
	}

	multi := form.Fields[2]
	if !multi.Multiple {
		t.Errorf("multi: expected Multiple, got %+v", multi)
	}
}

func TestParseDefaultMethod(t *testing.T) {
	form, err := Parse(`<form action="x"><input type="text" name="a"></form>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if form.Method != "get" {
		t.Errorf("got method %q, want get", form.Method)
	}
}
