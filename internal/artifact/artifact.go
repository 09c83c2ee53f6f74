// Package artifact writes fetched pages and constructed payloads to
// disk for offline inspection of a run, with password-like values
// redacted first.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mailman-tools/mmunblock/internal/htmlform"
)

const redactedValue = "[REDACTED]"

// Dumper writes one numbered file per page or payload into a single
// directory. A nil Dumper is valid and does nothing, so callers never
// guard their dump calls.
type Dumper struct {
	dir string
	seq int
}

// NewDumper creates the dump directory if needed.
func NewDumper(dir string) (*Dumper, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create dump directory: %w", err)
	}
	return &Dumper{dir: dir}, nil
}

// Page writes a fetched HTML page.
func (d *Dumper) Page(name, body string) {
	if d == nil {
		return
	}
	d.write(name, "html", body)
}

// Payload writes a constructed submission payload, one "name=value"
// line per pair in submission order, redacted.
func (d *Dumper) Payload(name string, p htmlform.Payload) {
	if d == nil {
		return
	}
	var b strings.Builder
	for _, pair := range Redact(p) {
		b.WriteString(pair.Name)
		b.WriteByte('=')
		b.WriteString(pair.Value)
		b.WriteByte('\n')
	}
	d.write(name, "txt", b.String())
}

func (d *Dumper) write(name, ext, content string) {
	d.seq++
	path := filepath.Join(d.dir, fmt.Sprintf("%03d-%s.%s", d.seq, sanitize(name), ext))
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: failed to write artifact %s: %v\n", path, err)
	}
}

// sanitize keeps artifact names filesystem-safe.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// Redact returns a copy of the payload with the values of
// password-like fields replaced, leaving the original untouched. It is
// applied to everything written to disk or logged.
func Redact(p htmlform.Payload) htmlform.Payload {
	out := make(htmlform.Payload, len(p))
	for i, pair := range p {
		if sensitiveName(pair.Name) {
			pair.Value = redactedValue
		}
		out[i] = pair
	}
	return out
}

func sensitiveName(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "passw") || strings.Contains(n, "pw")
}
