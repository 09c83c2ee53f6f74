package mailman

import (
	"reflect"
	"testing"
)

func TestDefaultLetters(t *testing.T) {
	letters := DefaultLetters()
	if len(letters) != 27 {
		t.Fatalf("got %d letters, want 27", len(letters))
	}
	if letters[0] != "1" || letters[1] != "a" || letters[26] != "z" {
		t.Errorf("got %v", letters)
	}
}

func TestParseLetters(t *testing.T) {
	tests := []struct {
		spec string
		want []string
	}{
		{"b", []string{"b"}},
		{"B", []string{"b"}},
		{"abc", []string{"a", "b", "c"}},
		{"1,abc,xyz", []string{"1", "a", "b", "c", "x", "y", "z"}},
		{"a, b ", []string{"a", "b"}},
		{"aab,ba", []string{"a", "b"}},
		{"", nil},
	}

	for _, tt := range tests {
		if got := ParseLetters(tt.spec); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseLetters(%q): got %v, want %v", tt.spec, got, tt.want)
		}
	}
}
