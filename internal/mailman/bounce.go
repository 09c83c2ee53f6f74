package mailman

import (
	"context"

	"github.com/mailman-tools/mmunblock/internal/htmlform"
)

// ClearBounces drives the bounce processing page to reset the bounce
// records of the given members. It reports whether a change was
// actually submitted; verifying that the members became unblockable is
// the caller's job via a fresh members-page pass.
//
// The submission keeps every non-submit field of the bounce form except
// that per-row address fields are restricted to the targeted members,
// so unrelated rows are left untouched.
func (c *Client) ClearBounces(ctx context.Context, addresses []string) (bool, error) {
	if len(addresses) == 0 {
		return false, nil
	}

	pageURL := c.bounceURL()
	page, err := c.session.Get(ctx, pageURL, fetchTimeout)
	if err != nil {
		return false, err
	}
	c.dumper.Page("bounce", page)

	form, err := htmlform.Parse(page)
	if err != nil {
		return false, err
	}
	if form == nil {
		c.logger.Debug("bounce page has no form", "url", pageURL)
		return false, nil
	}

	wanted := make(map[string]bool, len(addresses))
	for _, a := range addresses {
		wanted[a] = true
	}

	var payload htmlform.Payload
	matched := false
	for _, pair := range htmlform.Build(form) {
		if pair.Name == addressField {
			if !wanted[pair.Value] {
				continue
			}
			matched = true
		}
		payload = append(payload, pair)
	}
	if !matched {
		c.logger.Debug("no bounce rows match target addresses", "targets", len(addresses))
		return false, nil
	}

	name, value, err := SelectBounceSubmit(form)
	if err != nil {
		return false, err
	}
	payload = payload.Append(name, value)

	action := c.resolveAction(pageURL, form)
	c.logger.Debug("clearing bounce records", "url", action, "fields", len(payload))
	c.dumper.Payload("bounce-clear", payload)

	// This page rejects urlencoded submissions; it has to be multipart.
	result, err := c.session.SubmitMultipart(ctx, action, payload, submitTimeout)
	if err != nil {
		return false, err
	}
	c.dumper.Page("bounce-result", result)

	// Reload as a reachability check only.
	if _, err := c.session.Get(ctx, pageURL, fetchTimeout); err != nil {
		return true, err
	}
	return true, nil
}
