package htmlform

import (
	"reflect"
	"testing"
)

func mustParse(t *testing.T, html string) *Form {
	t.Helper()
	form, err := Parse(html)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if form == nil {
		t.Fatal("no form in fixture")
	}
	return form
}

func TestBuildBrowserEquivalence(t *testing.T) {
	tests := []struct {
		name string
		html string
		want Payload
	}{
		{
			name: "checked boxes only, default on value",
			html: `<form>
				<input type="checkbox" name="a" checked>
				<input type="checkbox" name="b">
				<input type="checkbox" name="c" value="v" checked>
			</form>`,
			want: Payload{{"a", "on"}, {"c", "v"}},
		},
		{
			name: "duplicate names preserved in order",
			html: `<form>
				<input type="hidden" name="user" value="first@example.com">
				<input type="checkbox" name="first@example.com_nomail" checked>
				<input type="hidden" name="user" value="second@example.com">
				<input type="checkbox" name="second@example.com_nomail" checked>
			</form>`,
			want: Payload{
				{"user", "first@example.com"},
				{"first@example.com_nomail", "on"},
				{"user", "second@example.com"},
				{"second@example.com_nomail", "on"},
			},
		},
		{
			name: "submit and ignored inputs excluded",
			html: `<form>
				<input type="hidden" name="h" value="1">
				<input type="submit" name="go" value="Go">
				<input type="image" name="img">
				<input type="file" name="f">
			</form>`,
			want: Payload{{"h", "1"}},
		},
		{
			name: "nameless fields excluded",
			html: `<form>
				<input type="hidden" value="orphan">
				<input type="hidden" name="kept" value="1">
			</form>`,
			want: Payload{{"kept", "1"}},
		},
		{
			name: "unselected single select falls back to first option",
			html: `<form>
				<select name="s"><option value="x">X</option><option value="y">Y</option></select>
			</form>`,
			want: Payload{{"s", "x"}},
		},
		{
			name: "selected single select",
			html: `<form>
				<select name="s"><option value="x">X</option><option value="y" selected>Y</option></select>
			</form>`,
			want: Payload{{"s", "y"}},
		},
		{
			name: "multi select emits one pair per selection",
			html: `<form>
				<select name="m" multiple>
					<option value="1" selected>one</option>
					<option value="2">two</option>
					<option value="3" selected>three</option>
				</select>
			</form>`,
			want: Payload{{"m", "1"}, {"m", "3"}},
		},
		{
			name: "multi select with nothing selected emits nothing",
			html: `<form>
				<select name="m" multiple><option value="1">one</option></select>
				<input type="hidden" name="h" value="1">
			</form>`,
			want: Payload{{"h", "1"}},
		},
		{
			name: "unchecked radio group emits nothing",
			html: `<form>
				<input type="radio" name="r" value="a">
				<input type="radio" name="r" value="b">
			</form>`,
			want: nil,
		},
		{
			name: "textarea content",
			html: `<form><textarea name="ta">hello</textarea></form>`,
			want: Payload{{"ta", "hello"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(mustParse(t, tt.html))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithoutNames(t *testing.T) {
	p := Payload{
		{"keep1", "1"},
		{"drop", "a"},
		{"keep2", "2"},
		{"drop", "b"},
		{"other", "3"},
	}

	got := p.WithoutNames("drop", "missing")
	want := Payload{{"keep1", "1"}, {"keep2", "2"}, {"other", "3"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// input untouched
	if len(p) != 5 {
		t.Errorf("original payload mutated: %v", p)
	}
}

func TestAppend(t *testing.T) {
	p := Payload{{"a", "1"}}
	got := p.Append("btn", "Submit Your Changes")

	want := Payload{{"a", "1"}, {"btn", "Submit Your Changes"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if len(p) != 1 {
		t.Errorf("original payload mutated: %v", p)
	}
}

func TestEncodePreservesOrder(t *testing.T) {
	p := Payload{
		{"z", "last letter"},
		{"a", "1&2"},
		{"z", "again"},
	}

	got := p.Encode()
	want := "z=last+letter&a=1%262&z=again"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNames(t *testing.T) {
	p := Payload{{"a", "1"}, {"b", "2"}, {"a", "3"}}
	want := []string{"a", "b", "a"}
	if got := p.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
