package mailman

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/mailman-tools/mmunblock/internal/htmlform"
)

// Reason is Mailman's single-letter code for why delivery is disabled.
type Reason string

const (
	ReasonBounce  Reason = "B" // disabled by the bounce processor
	ReasonAdmin   Reason = "A" // disabled by the list administrator
	ReasonUser    Reason = "U" // disabled by the member themselves
	ReasonUnknown Reason = "?"
)

// UnknownAddress marks a blocked row whose member address could not be
// located in the markup. Rows are never dropped for a missing address;
// the sentinel keeps counts consistent and is never a valid address.
const UnknownAddress = "(unknown)"

// nomailSuffix is the one naming convention this tool relies on: the
// per-member delivery-disable checkbox is named <encoded-address>_nomail
// in every Mailman 2.1 release.
const nomailSuffix = "_nomail"

// addressField is the hidden per-row input carrying the member address.
const addressField = "user"

var reasonToken = regexp.MustCompile(`\[([ABU])\]`)

// BlockedRow is one member whose delivery is currently disabled.
type BlockedRow struct {
	CheckboxName string
	Address      string
	Reason       Reason
}

// FindBlocked scans a members-page form for checked *_nomail
// checkboxes and resolves each to its member address and disable
// reason.
func FindBlocked(form *htmlform.Form) []BlockedRow {
	var rows []BlockedRow

	form.Selection().Find("input[type='checkbox'][name$='_nomail'][checked]").Each(func(_ int, box *goquery.Selection) {
		name := box.AttrOr("name", "")
		if name == "" {
			return
		}
		rows = append(rows, BlockedRow{
			CheckboxName: name,
			Address:      memberAddress(box),
			Reason:       disableReason(box),
		})
	})

	return rows
}

// BounceTargets filters blocked rows down to the ones this tool is
// allowed to act on: delivery disabled by the bounce processor.
func BounceTargets(rows []BlockedRow) []BlockedRow {
	var targets []BlockedRow
	for _, r := range rows {
		if r.Reason == ReasonBounce {
			targets = append(targets, r)
		}
	}
	return targets
}

// ReasonHistogram counts blocked rows per reason code.
func ReasonHistogram(rows []BlockedRow) map[Reason]int {
	hist := make(map[Reason]int)
	for _, r := range rows {
		hist[r.Reason]++
	}
	return hist
}

// Addresses returns the member addresses of the given rows, skipping
// the unknown sentinel.
func Addresses(rows []BlockedRow) []string {
	var addrs []string
	for _, r := range rows {
		if r.Address != UnknownAddress {
			addrs = append(addrs, r.Address)
		}
	}
	return addrs
}

// memberAddress finds the hidden "user" input belonging to a checkbox:
// first within the same table row, then the nearest one following the
// checkbox in document order.
func memberAddress(box *goquery.Selection) string {
	if tr := box.Closest("tr"); tr.Length() > 0 {
		if v, ok := tr.Find("input[name='" + addressField + "']").First().Attr("value"); ok && v != "" {
			return v
		}
	}

	if v := nextAddressValue(box.Get(0)); v != "" {
		return v
	}
	return UnknownAddress
}

// nextAddressValue walks forward from n in document order looking for
// the next input named "user" with a non-empty value.
func nextAddressValue(n *html.Node) string {
	for n = nextNode(n); n != nil; n = nextNode(n) {
		if n.Type != html.ElementNode || n.Data != "input" {
			continue
		}
		name, value := "", ""
		for _, a := range n.Attr {
			switch strings.ToLower(a.Key) {
			case "name":
				name = a.Val
			case "value":
				value = a.Val
			}
		}
		if name == addressField && value != "" {
			return value
		}
	}
	return ""
}

// nextNode is the document-order successor: first child, else next
// sibling, else the nearest ancestor's next sibling.
func nextNode(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

// disableReason reads the bracketed reason token Mailman renders next
// to the checkbox, e.g. "[B]". Falls back to the enclosing cell's text.
// This is a best-effort scan: the token has no machine-readable source
// in the markup.
func disableReason(box *goquery.Selection) Reason {
	n := box.Get(0)
	for sib := n.NextSibling; sib != nil && sib.Type == html.TextNode; sib = sib.NextSibling {
		if r, ok := matchReason(sib.Data); ok {
			return r
		}
	}

	if cell := box.Closest("td"); cell.Length() > 0 {
		if r, ok := matchReason(cell.Text()); ok {
			return r
		}
	}
	return ReasonUnknown
}

func matchReason(text string) (Reason, bool) {
	m := reasonToken.FindStringSubmatch(text)
	if m == nil {
		return ReasonUnknown, false
	}
	return Reason(m[1]), true
}
