package mailman

import "strings"

// DefaultLetters is the full tab set of Mailman's members page: the
// "1" bucket (addresses starting with a digit or symbol) plus a-z.
func DefaultLetters() []string {
	letters := []string{"1"}
	for c := 'a'; c <= 'z'; c++ {
		letters = append(letters, string(c))
	}
	return letters
}

// ParseLetters expands a user-supplied letter spec like "b", "abc" or
// "1,abc,xyz" into individual lowercased letters, de-duplicated with
// first occurrence winning.
func ParseLetters(spec string) []string {
	seen := make(map[string]bool)
	var out []string

	for _, chunk := range strings.Split(spec, ",") {
		for _, c := range strings.TrimSpace(chunk) {
			letter := strings.ToLower(string(c))
			if !seen[letter] {
				seen[letter] = true
				out = append(out, letter)
			}
		}
	}
	return out
}
